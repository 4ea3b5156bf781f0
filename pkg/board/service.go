// Package board is the data-access surface callers build on: typed
// operations over companies, users, boards, tickets and board settings, each
// addressed through keyspace and persisted through a store.Store.
//
// Authorization is not checked here. Callers resolve authz.Rights first.
package board

import (
	"context"
	"time"

	"taskboard-core/pkg/retry"
	"taskboard-core/pkg/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	store  store.Store
	writer *retry.Writer
	logger *zap.Logger

	now   func() time.Time
	newID func() string

	metrics *retry.Metrics
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now. Times are stored in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the random UUID generator used for new companies,
// boards, tickets and templates.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func WithMetrics(m *retry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}

	writerOpts := []retry.Option{retry.WithLogger(s.logger)}
	if s.metrics != nil {
		writerOpts = append(writerOpts, retry.WithMetrics(s.metrics))
	}
	s.writer = retry.NewWriter(st, writerOpts...)
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// Page requests one page of a listing. Limit <= 0 lists everything.
type Page struct {
	Limit  int
	Cursor string
}

// listAll collects every child of parent whose itemId starts with prefix.
func (s *Service) listAll(ctx context.Context, parent, prefix string) ([]store.Item, error) {
	page, err := s.store.QueryChildren(ctx, store.Query{Parent: parent, Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func decodeAll[T any](items []store.Item, decode func(store.Item) (T, error)) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
