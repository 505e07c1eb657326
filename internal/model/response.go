package model

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

// ListResponse wraps list results in a "resource" array.
type ListResponse[T any] struct {
	Resource []T `json:"resource"`
	Count    int `json:"count"`
}

// NewListResponse returns a ListResponse over items, never with a nil
// resource array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Resource: items, Count: len(items)}
}
