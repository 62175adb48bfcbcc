package model

// NameList is the envelope of name listing endpoints, wrapping the names in
// a "resource" array.
type NameList struct {
	Resource []string      `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta carries the schema a listing was taken from and its timing.
type ResponseMeta struct {
	Count  int     `json:"count"`
	Schema string  `json:"schema,omitempty"`
	TookMs float64 `json:"took_ms"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}
