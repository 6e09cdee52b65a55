package search

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates a Searcher, mirroring the llm client stack.
type Middleware func(Searcher) Searcher

// Wrap applies middlewares in left-to-right order.
func Wrap(inner Searcher, mws ...Middleware) Searcher {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Acquirer hands out request tokens. *llm.Limiter satisfies it, so search
// can draw on the model's quota.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// RateLimit takes a token from l before every search.
func RateLimit(l Acquirer) Middleware {
	return func(next Searcher) Searcher {
		return SearchFunc(func(ctx context.Context, query string, limit int) ([]Snippet, error) {
			if err := l.Acquire(ctx); err != nil {
				return nil, err
			}
			return next.Search(ctx, query, limit)
		})
	}
}

// Retry retries failed searches up to maxAttempts with exponential backoff.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Searcher) Searcher {
		return SearchFunc(func(ctx context.Context, query string, limit int) ([]Snippet, error) {
			var last error
			for i := 0; i < maxAttempts; i++ {
				out, err := next.Search(ctx, query, limit)
				if err == nil {
					return out, nil
				}
				last = err
				if i == maxAttempts-1 {
					break
				}
				t := time.NewTimer(baseDelay * time.Duration(1<<i))
				select {
				case <-ctx.Done():
					t.Stop()
					return nil, ctx.Err()
				case <-t.C:
				}
			}
			return nil, last
		})
	}
}

// WithLogging logs query, result count, latency and errors.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Searcher) Searcher {
		return SearchFunc(func(ctx context.Context, query string, limit int) ([]Snippet, error) {
			start := time.Now()
			out, err := next.Search(ctx, query, limit)
			fields := []zap.Field{
				zap.String("query", query),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				logger.Warn("search failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			logger.Debug("search", append(fields, zap.Int("results", len(out)))...)
			return out, nil
		})
	}
}
