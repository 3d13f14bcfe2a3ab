package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrParse         = errors.New("document parse failure")
	ErrRender        = errors.New("render failure")
	ErrRenderTimeout = errors.New("render timeout")
	ErrCountMismatch = errors.New("slide count and image count mismatch")
	ErrStorage       = errors.New("object storage failure")
	ErrDB            = errors.New("database failure")
	ErrStaging       = errors.New("staging failure")
	ErrTemporary     = errors.New("temporary failure")
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

// CountMismatchError reports divergence between extracted slides and
// rendered images. It matches ErrCountMismatch.
type CountMismatchError struct {
	Slides int
	Images int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s: %d slides, %d images", ErrCountMismatch, e.Slides, e.Images)
}

func (e *CountMismatchError) Is(target error) bool {
	return target == ErrCountMismatch
}
