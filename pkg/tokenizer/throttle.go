package tokenizer

import (
	"context"

	"github.com/ppiankov/tagex/pkg/model"
	"golang.org/x/time/rate"
)

// Throttle wraps a callback that consults an external resource so that it runs
// at most at the limiter's rate. When waiting fails, for example because the
// step timeout expired, the callback yields no match.
func Throttle(fn CallbackFunc, limiter *rate.Limiter) CallbackFunc {
	if limiter == nil {
		return fn
	}
	return func(ctx context.Context, window string, guesses []Candidate, prev *model.Token) (Candidate, error) {
		if err := limiter.Wait(ctx); err != nil {
			return Candidate{}, nil
		}
		return fn(ctx, window, guesses, prev)
	}
}
