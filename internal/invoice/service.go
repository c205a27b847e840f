package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type Service interface {
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
}

// FetchObserver is told how long each provider call took and how it ended.
type FetchObserver interface {
	ObserveFetch(kind, outcome string, elapsed time.Duration)
}

type service struct {
	provider Provider
	observer FetchObserver
	timeout  time.Duration
}

type ServiceOption func(*service)

// WithFetchTimeout caps every provider call on top of the caller's context.
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *service) { s.timeout = d }
}

func NewService(provider Provider, observer FetchObserver, opts ...ServiceOption) Service {
	s := &service{provider: provider, observer: observer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	inv, err := s.provider.GetInvoice(ctx, id)
	s.observe("invoice", err, time.Since(start))
	if err != nil {
		return nil, s.normalize(err, "invoice", id)
	}

	return inv, nil
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	order, err := s.provider.GetOrder(ctx, id)
	s.observe("order", err, time.Since(start))
	if err != nil {
		return nil, s.normalize(err, "order", id)
	}

	return order, nil
}

// normalize keeps ErrNotFound and ErrShapeMismatch recognizable and logs
// each class at the level operators need.
func (s *service) normalize(err error, kind string, id int64) error {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info().Str("kind", kind).Int64("id", id).Msg("Record not found at provider")
		return err
	case errors.Is(err, ErrShapeMismatch):
		log.Warn().Err(err).Str("kind", kind).Int64("id", id).Msg("Provider payload failed validation")
		return err
	default:
		log.Error().Err(err).Str("kind", kind).Int64("id", id).Msg("Provider fetch failed")
		return fmt.Errorf("failed to fetch %s %d: %w", kind, id, err)
	}
}

func (s *service) observe(kind string, err error, elapsed time.Duration) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveFetch(kind, FetchOutcome(err), elapsed)
}

// FetchOutcome classifies a provider error for metrics labels.
func FetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
