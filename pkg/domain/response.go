package domain

// Status is the outcome tag of a Response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is what a response sink receives for an invocation.
type Response struct {
	CallbackID string            `json:"callbackId,omitempty"`
	Status     Status            `json:"status"`
	Value      any               `json:"value,omitempty"`
	Kind       ErrorKind         `json:"kind,omitempty"`
	Message    string            `json:"message,omitempty"`
	Reason     OpenFailureReason `json:"reason,omitempty"`
}

// Success builds a success response.
func Success(value any) Response {
	return Response{Status: StatusSuccess, Value: value}
}

// Failure builds an error response from any error.
func Failure(err error) Response {
	de := AsError(err)
	return Response{
		Status:  StatusError,
		Kind:    de.Kind,
		Message: de.Error(),
		Reason:  de.Reason,
	}
}

// OK reports whether the response is a success.
func (r Response) OK() bool { return r.Status == StatusSuccess }

// Err rebuilds a typed error from an error response, or nil on success.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Reason: r.Reason, Message: r.Message}
}

// OpenResult is the success value of a container open.
type OpenResult struct {
	ContainerID string `json:"containerId"`
	SessionID   string `json:"sessionId"`
}
