package server

import (
	"errors"
	"fmt"
)

var ErrMissingField = errors.New("missing form field")

func errMissingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
