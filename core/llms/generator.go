package llms

import (
	"context"
	"errors"
)

// ErrContentBlocked is returned by a [Generator] when the provider refused to
// produce a reply for safety or policy reasons.
var ErrContentBlocked = errors.New("generation blocked by provider")

// Generator turns a fully rendered prompt into reply text. The reply may
// carry control markers, see the markers package.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to a [Generator].
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
