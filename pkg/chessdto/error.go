package chessdto

// DomainError is the error envelope returned by provider endpoints.
type DomainError struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "move provider error"
}
