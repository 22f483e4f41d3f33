package errors

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the standard wire shape for an error
func NewErrorResponse(err error) ErrorResponse {
	var internalErr *InternalError
	detail := ErrorDetail{Display: err.Error()}
	if As(err, &internalErr) {
		detail.Display = internalErr.DisplayError()
		detail.InternalError = internalErr.Error()
	}
	return ErrorResponse{Success: false, Error: detail}
}
