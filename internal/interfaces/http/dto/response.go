package dto

// Response is the JSON envelope of every webhook and API answer. The
// marketplace contract uses an integer success flag and always includes the
// meta object, even when empty.
type Response struct {
	Success int         `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    struct{}    `json:"meta"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes of the webhook contract
const (
	ErrCodeMalformed     = "MALFORMED_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUnknownMethod = "UNKNOWN_METHOD"
	ErrCodeConflict      = "ORDER_CONFLICT"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeTooLarge      = "REQUEST_TOO_LARGE"
)

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: 1,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: 0,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
