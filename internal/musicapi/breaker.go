package musicapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"conciertapp/internal/metrics"
)

// Ensure BreakerClient implements MusicAPIClient
var _ MusicAPIClient = (*BreakerClient)(nil)

// BreakerClient guards a catalog client with a circuit breaker so a failing
// provider turns into fast per-item errors instead of a slow batch.
type BreakerClient struct {
	next MusicAPIClient
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerClient wraps next. The breaker opens after 5 consecutive
// failures and half-opens after 30 seconds.
func NewBreakerClient(name string, next MusicAPIClient) *BreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Misses and cancellations are not provider outages.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, ErrNotConfigured)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerClient{next: next, cb: cb, name: name}
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.ProviderRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	return result, err
}

func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return v, nil
}

// SearchArtists implements MusicAPIClient.
func (b *BreakerClient) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	return castResult[[]Artist](b.execute(func() (any, error) {
		return b.next.SearchArtists(ctx, query, limit)
	}))
}

// SearchTracks implements MusicAPIClient.
func (b *BreakerClient) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	return castResult[[]Track](b.execute(func() (any, error) {
		return b.next.SearchTracks(ctx, query, limit)
	}))
}

// GetArtist implements MusicAPIClient.
func (b *BreakerClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	return castResult[*Artist](b.execute(func() (any, error) {
		return b.next.GetArtist(ctx, artistID)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
