// Package media resolves batches of user-picked photos into embedded payloads.
//
// A batch is fanned out, one goroutine per picked item, and joined before
// anything is returned. Items that fail to resolve are logged and skipped;
// they never fail the batch.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handle is an opaque reference to one picked photo. Only the Resolver that
// issued it knows how to turn it into bytes.
type Handle string

// Resolver turns a Handle into the photo payload.
// Implementations must be safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, h Handle) ([]byte, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(ctx context.Context, h Handle) ([]byte, error)

// Resolve calls f(ctx, h).
func (f ResolverFunc) Resolve(ctx context.Context, h Handle) ([]byte, error) {
	return f(ctx, h)
}

// Options tunes a Pipeline.
type Options struct {
	// Concurrency caps the number of in-flight resolutions per batch.
	// Zero or negative means one goroutine per handle.
	Concurrency int

	// MaxBytes rejects payloads larger than this many bytes. Zero disables the cap.
	MaxBytes int64
}

// Pipeline resolves batches of handles. It holds no per-batch state, so one
// Pipeline can serve many sessions.
type Pipeline struct {
	log  *slog.Logger
	opts Options
}

// NewPipeline returns a Pipeline that logs skipped items to log.
func NewPipeline(log *slog.Logger, opts Options) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{log: log, opts: opts}
}

// Ingest resolves every handle and returns the payloads that resolved and
// passed validation, in the order their resolution completed.
// It returns only after every handle has finished, successfully or not.
func (p *Pipeline) Ingest(ctx context.Context, handles []Handle, r Resolver) [][]byte {
	start := time.Now()
	batchesTotal.Inc()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if len(handles) == 0 {
		return nil
	}

	// Buffered to len(handles) so no sender ever blocks; drained after Wait.
	done := make(chan []byte, len(handles))

	var g errgroup.Group
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for i, h := range handles {
		g.Go(func() error {
			data, err := p.resolve(ctx, h, r)
			if err != nil {
				itemsFailedTotal.WithLabelValues(failureReason(err)).Inc()
				p.log.WarnContext(ctx, "photo skipped",
					"handle", string(h),
					"index", i,
					"error", err,
				)
				return nil
			}
			itemsResolvedTotal.Inc()
			done <- data
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
	close(done)

	out := make([][]byte, 0, len(done))
	for data := range done {
		out = append(out, data)
	}

	p.log.DebugContext(ctx, "photo batch resolved",
		"requested", len(handles),
		"resolved", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// resolve runs one resolution and validates its payload. A panicking
// resolver is reported as a failure of that item only.
func (p *Pipeline) resolve(ctx context.Context, h Handle, r Resolver) (data []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("%w: %v", ErrResolverPanic, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err = r.Resolve(ctx, h)
	if err != nil {
		return nil, err
	}
	if err := checkPayload(data, p.opts.MaxBytes); err != nil {
		return nil, err
	}
	return data, nil
}

// failureReason maps an item error to a low-cardinality metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrEmptyPayload):
		return "empty"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrNotImage):
		return "not_image"
	case errors.Is(err, ErrResolverPanic):
		return "panic"
	default:
		return "resolve"
	}
}
