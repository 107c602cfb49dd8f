// Package response defines the envelope middleware uses when it has to
// answer a request before any handler runs. Handlers build their own
// DTOs; middleware aborts share this shape so clients see one error
// format everywhere.
package response

// Response is the middleware-level reply envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

// ErrorData carries the stable code and a human-readable message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorBody builds an error envelope without writing it, for use with
// AbortWithStatusJSON
func ErrorBody(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorData{
			Code:    code,
			Message: message,
		},
	}
}
