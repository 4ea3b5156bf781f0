// Package retry creates items whose ids are generated by the caller. Each
// attempt asks the generator for a fresh candidate and writes it
// conditionally; a conflict means the candidate id was taken and the next
// attempt tries a new one. There is no delay between attempts.
package retry

import (
	"context"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/store"

	"go.uber.org/zap"
)

// MaxAttempts is the number of candidates tried before giving up.
const MaxAttempts = 3

const (
	opCreate    = "create"
	opCreateAll = "create_all"
)

// ItemGenerator returns the next candidate item. It is called once per attempt.
type ItemGenerator func() (store.Item, error)

// OpsGenerator returns the next candidate transaction. It is called once per
// attempt.
type OpsGenerator func() ([]store.Op, error)

// Writer wraps a store with the bounded create protocol.
type Writer struct {
	store   store.Store
	logger  *zap.Logger
	metrics *Metrics
}

type Option func(*Writer)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithMetrics records attempts, conflicts and exhaustion in m.
func WithMetrics(m *Metrics) Option {
	return func(w *Writer) {
		w.metrics = m
	}
}

func NewWriter(s store.Store, opts ...Option) *Writer {
	w := &Writer{store: s, logger: zap.NewNop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Create writes the first generated item whose key is free and returns it.
func (w *Writer) Create(ctx context.Context, gen ItemGenerator) (store.Item, error) {
	var created store.Item
	err := w.run(ctx, opCreate, apperrors.IsConditionFailed, func() error {
		item, err := gen()
		if err != nil {
			return err
		}
		if err := w.store.PutIfAbsent(ctx, item); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateAll commits the first generated transaction whose conditions all hold
// and returns its ops.
func (w *Writer) CreateAll(ctx context.Context, gen OpsGenerator) ([]store.Op, error) {
	var committed []store.Op
	err := w.run(ctx, opCreateAll, apperrors.IsAborted, func() error {
		ops, err := gen()
		if err != nil {
			return err
		}
		if err := w.store.TransactWrite(ctx, ops); err != nil {
			return err
		}
		committed = ops
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (w *Writer) run(ctx context.Context, op string, retryable func(error) bool, attempt func() error) error {
	var last error
	for i := 1; i <= MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return apperrors.BackendUnavailable(op, err)
		}

		w.metrics.attempt(op)
		err := attempt()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		w.metrics.conflict(op)
		w.logger.Debug("Write conflict, retrying with a new candidate",
			zap.String("operation", op),
			zap.Int("attempt", i),
			zap.Error(err))
		last = err
	}

	w.metrics.exhausted(op)
	w.logger.Warn("Write attempts exhausted",
		zap.String("operation", op),
		zap.Int("attempts", MaxAttempts),
		zap.Error(last))
	return apperrors.WriteExhausted(op, MaxAttempts, last)
}
