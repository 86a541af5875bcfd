package utils

import "fmt"

// TransportError reports a non-success HTTP status.
type TransportError struct {
	URL        string
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network problem {code: %d}: %s", e.StatusCode, e.URL)
}

// ApplicationError reports a non-success code inside a successful response.
type ApplicationError struct {
	URL     string
	Code    int
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api problem {code: %d}: %s", e.Code, e.URL)
	}
	return fmt.Sprintf("api problem {code: %d}: %s: %s", e.Code, e.URL, e.Message)
}

// DataShapeError reports lists that should line up but do not, such as ids
// against names or an order list against page URLs.
type DataShapeError struct {
	What string
	Want int
	Got  int
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("amount error: %s (want %d, got %d)", e.What, e.Want, e.Got)
}

// FilesystemError reports a destination that exists but is not a directory.
type FilesystemError struct {
	Path string
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("the path is not a directory: %s", e.Path)
}

// DecodeError reports page bytes that are not a readable image.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
