package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid input")
	ErrDuplicate         = errors.New("duplicate")
	ErrNoTenant          = errors.New("no organization in context")
	ErrCircularRecipe    = errors.New("circular recipe")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// CircularRecipeError reports a product that (transitively) uses itself as a
// sub-product. Chain starts and ends with the repeated product.
type CircularRecipeError struct {
	Chain []uuid.UUID
}

func (e *CircularRecipeError) Error() string {
	ids := make([]string, 0, len(e.Chain))
	for _, id := range e.Chain {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("circular recipe: %s", strings.Join(ids, " -> "))
}

func (e *CircularRecipeError) Unwrap() error { return ErrCircularRecipe }
