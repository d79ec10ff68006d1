package domain

import (
	"context"
	"errors"
)

// ErrSelectionCancelled is returned by a Picker when the user dismisses the choice.
// It is a user abort, not a failure.
var ErrSelectionCancelled = errors.New("selection cancelled")

// Picker asks the user to choose one of several options.
type Picker interface {
	Pick(ctx context.Context, prompt string, options []string) (string, error)
}
