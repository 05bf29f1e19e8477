package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// Static lookup tables for translating upstream model metadata into the
// Ollama tags shape. Read-only after initialization.

// DefaultModelSize is the fallback estimate when nothing more specific
// matches (1GB).
const DefaultModelSize int64 = 1_000_000_000

// digestNamespace is hashed together with the model id so digests are
// distinguishable from real Ollama blob digests.
const digestNamespace = "openai:"

// Aliases maps compatibility names to upstream model ids, for clients that
// only know local-model names.
var Aliases = map[string]string{
	"llama2":    "gpt-3.5-turbo",
	"mistral":   "gpt-3.5-turbo",
	"codellama": "gpt-3.5-turbo-16k",
}

// modelSizes holds exact-match size estimates in bytes.
var modelSizes = map[string]int64{
	"gpt-3.5-turbo":          1_500_000_000,
	"gpt-3.5-turbo-16k":      1_600_000_000,
	"gpt-4":                  20_000_000_000,
	"gpt-4-32k":              20_500_000_000,
	"gpt-4-turbo":            25_000_000_000,
	"text-embedding-ada-002": 350_000_000,
	"text-embedding-3-small": 100_000_000,
	"text-embedding-3-large": 600_000_000,
}

// includePrefixes selects the chat and embedding families worth exposing.
var includePrefixes = []string{
	"gpt-",
	"text-embedding-",
	"chatgpt-",
	"o1-",
	"o3-",
}

// excludeKeywords filters deprecated and legacy completion-only variants.
// Exclusions always win over inclusions.
var excludeKeywords = []string{
	"deprecated",
	"preview",
	"instruct",
	"davinci",
	"curie",
	"babbage",
}

var excludePrefixes = []string{
	"text-ada-",
	"code-ada-",
	"ada-",
}

// Resolve maps a compatibility alias to its upstream id. Unknown ids pass
// through unchanged.
func Resolve(modelID string) string {
	if upstream, ok := Aliases[modelID]; ok {
		return upstream
	}
	return modelID
}

// ShouldInclude reports whether an upstream model belongs in the tags
// listing.
func ShouldInclude(modelID string) bool {
	id := strings.ToLower(modelID)

	for _, keyword := range excludeKeywords {
		if strings.Contains(id, keyword) {
			return false
		}
	}
	for _, prefix := range excludePrefixes {
		if strings.HasPrefix(id, prefix) {
			return false
		}
	}
	for _, prefix := range includePrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// EstimateSize returns a size estimate in bytes: exact table match first,
// then a family heuristic, then the global default.
func EstimateSize(modelID string) int64 {
	if size, ok := modelSizes[modelID]; ok {
		return size
	}

	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "embedding"):
		return 500_000_000
	case strings.Contains(id, "gpt-4"):
		return 20_000_000_000
	case strings.Contains(id, "gpt-3.5"):
		return 2_000_000_000
	default:
		return DefaultModelSize
	}
}

// ComputeDigest derives a stable pseudo-digest for a model id. The output
// is deterministic: the same id always yields the same digest.
func ComputeDigest(modelID string) string {
	sum := sha256.Sum256([]byte(digestNamespace + modelID))
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}

// ToDescriptor builds the Ollama-shaped descriptor for an upstream model.
// The upstream creation time becomes the modified_at timestamp.
func ToDescriptor(modelID string, created int64) api.Model {
	modifiedAt := time.Unix(created, 0).UTC().Format(time.RFC3339)
	return api.NewModel(modelID, modifiedAt, EstimateSize(modelID), ComputeDigest(modelID))
}
