package analyzer

import "errors"

// ErrInvalidArgument is matched by every *ArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports a missing required input.
type ArgumentError struct {
	Argument string
}

func (e *ArgumentError) Error() string {
	return "invalid argument: " + e.Argument + " is required"
}

// Is lets errors.Is(err, ErrInvalidArgument) match.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}
