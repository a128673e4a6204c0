package llm

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Every error returned by a Client wraps exactly one of these.
var (
	ErrUnreachable       = errors.New("model server unreachable")
	ErrStatus            = errors.New("model server returned an error status")
	ErrMalformedResponse = errors.New("malformed model server response")
)

// Kind returns a short name for the upstream failure class of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "unreachable"
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
