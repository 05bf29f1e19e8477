package api

// Model is a single entry in a tags listing. The Ollama wire format carries
// the identifier under both "name" and "model"; clients read either key, so
// both are always populated with the same value.
type Model struct {
	Name       string         `json:"name"`
	Model      string         `json:"model"`
	ModifiedAt string         `json:"modified_at"`
	Size       int64          `json:"size"`
	Digest     string         `json:"digest"`
	Details    map[string]any `json:"details,omitempty"`
}

// NewModel is the single construction point for Model values. It duplicates
// the id into both identifier fields so the invariant cannot drift across
// call sites.
func NewModel(id, modifiedAt string, size int64, digest string) Model {
	return Model{
		Name:       id,
		Model:      id,
		ModifiedAt: modifiedAt,
		Size:       size,
		Digest:     digest,
	}
}

// TagsResponse is the envelope returned by GET /api/tags.
type TagsResponse struct {
	Models []Model `json:"models"`
}

// VersionResponse is returned by GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}
