package api

// ErrorDetails is the inner object of the structured error envelope.
type ErrorDetails struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Code    int            `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorEnvelope is the structured error shape returned to Ollama clients.
// A fresh envelope is built per failed operation and always carries a
// correlation id.
type ErrorEnvelope struct {
	Error         ErrorDetails `json:"error"`
	CorrelationID string       `json:"correlation_id"`
	CreatedAt     string       `json:"created_at"`
	Model         string       `json:"model,omitempty"`
}

// SimpleError is the legacy single-field error shape some Ollama clients
// expect. Both shapes carry the same human-readable message.
type SimpleError struct {
	Error string `json:"error"`
}

// Simple derives the legacy shape from an envelope.
func (e *ErrorEnvelope) Simple() SimpleError {
	return SimpleError{Error: e.Error.Message}
}
