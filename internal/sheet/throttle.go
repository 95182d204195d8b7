package sheet

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledStore wraps a Store with a rate limiter so hosted backends with
// per-minute call quotas are not hammered. Every store call waits for one
// token first.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottled wraps a store with a limiter of callsPerSecond and the given
// burst.
func NewThrottled(inner Store, callsPerSecond float64, burst int) *ThrottledStore {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst),
	}
}

func (s *ThrottledStore) ReadAll(ctx context.Context, tab string) (*Table, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.ReadAll(ctx, tab)
}

func (s *ThrottledStore) WriteAll(ctx context.Context, tab string, t *Table) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.WriteAll(ctx, tab, t)
}

func (s *ThrottledStore) Append(ctx context.Context, tab string, t *Table) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Append(ctx, tab, t)
}

func (s *ThrottledStore) UpdateCells(ctx context.Context, tab string, updates []CellUpdate) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.UpdateCells(ctx, tab, updates)
}

func (s *ThrottledStore) EnsureColumn(ctx context.Context, tab string, name string) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return s.inner.EnsureColumn(ctx, tab, name)
}

func (s *ThrottledStore) Close() error {
	return s.inner.Close()
}
