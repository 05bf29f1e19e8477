// Package translate converts between the Ollama wire dialect the proxy
// speaks to its clients and the OpenAI dialect it speaks upstream.
package translate

import (
	"sort"

	"github.com/nulzo/ollama-openai-proxy/internal/logger"
	"github.com/nulzo/ollama-openai-proxy/internal/registry"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// Tags converts an upstream model catalog into the Ollama tags envelope.
// Chat-incapable and retired models are filtered out, and an entry that
// cannot be described is skipped rather than failing the listing.
func Tags(list *upstream.ModelList) api.TagsResponse {
	resp := api.TagsResponse{Models: []api.Model{}}
	if list == nil {
		return resp
	}

	log := logger.Named("translate")
	for _, m := range list.Data {
		if m.ID == "" {
			log.Warn("skipping model entry without an id")
			continue
		}
		if !registry.ShouldInclude(m.ID) {
			continue
		}
		resp.Models = append(resp.Models, registry.ToDescriptor(m.ID, m.Created))
	}

	sort.Slice(resp.Models, func(i, j int) bool {
		return resp.Models[i].Name < resp.Models[j].Name
	})
	return resp
}
