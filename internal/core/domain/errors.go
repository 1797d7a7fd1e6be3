package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPartNotFound    = errors.New("part not found")
	ErrQuoteNotFound   = errors.New("quote not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMalformedMesh   = errors.New("malformed mesh")
	ErrCatalogNotFound = errors.New("catalog entry not found")
	ErrTemporary       = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
