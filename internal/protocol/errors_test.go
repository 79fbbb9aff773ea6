package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMalformed(t *testing.T) {
	cases := []error{
		ErrEmptyLine,
		ErrUnknownType,
		ErrArity,
		ErrBadField,
		fmt.Errorf("%w: JOIN", ErrArity),
	}
	for _, c := range cases {
		if !IsMalformed(c) {
			t.Fatalf("expected malformed: %v", c)
		}
	}
	if IsMalformed(errors.New("read tcp: connection reset")) {
		t.Fatalf("expected io error not classified as malformed")
	}
	if IsMalformed(nil) {
		t.Fatalf("nil is not malformed")
	}
}
