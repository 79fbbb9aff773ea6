package protocol

import "errors"

// Decode errors. Callers treat all of them as "drop the line".
var (
	ErrEmptyLine   = errors.New("protocol: empty line")
	ErrUnknownType = errors.New("protocol: unknown message type")
	ErrArity       = errors.New("protocol: wrong field count")
	ErrBadField    = errors.New("protocol: bad field")
)

// IsMalformed reports whether err came from decoding a line.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrEmptyLine) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrArity) ||
		errors.Is(err, ErrBadField)
}
