package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/ports"
	"github.com/samirrijal/aoiexplorer/internal/pkg/metrics"
)

// DefaultRequestTimeout bounds a single remote call when none is configured.
const DefaultRequestTimeout = 30 * time.Second

// ResolveFunc re-enters a resolution event into the machine's intake.
type ResolveFunc func(ctx context.Context, ev domain.Event) error

// RequestLifecycle mints request tokens and runs remote calls out of band.
// Start and Ping must be called from a single goroutine; every started
// token is resolved exactly once through the ResolveFunc.
type RequestLifecycle struct {
	transport ports.QueryTransport
	timeout   time.Duration
	resolve   ResolveFunc

	last     domain.RequestToken
	inflight sync.WaitGroup
}

// NewRequestLifecycle creates a lifecycle that reports back through resolve.
func NewRequestLifecycle(transport ports.QueryTransport, timeout time.Duration, resolve ResolveFunc) *RequestLifecycle {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &RequestLifecycle{transport: transport, timeout: timeout, resolve: resolve}
}

// Start mints a fresh token and fetches statistics for ring from endpointID
// without blocking the caller.
func (r *RequestLifecycle) Start(ctx context.Context, endpointID string, ring orb.Ring) domain.RequestToken {
	r.last++
	token := r.last

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		started := time.Now()
		result := r.fetch(ctx, endpointID, ring)
		elapsed := time.Since(started)
		metrics.QueryDuration.WithLabelValues(endpointID).Observe(elapsed.Seconds())

		_ = r.resolve(ctx, domain.QueryResolved{
			Token:    token,
			Endpoint: endpointID,
			Result:   result,
			Duration: elapsed,
		})
	}()

	return token
}

// Ping probes the remote API and reports a PingResolved event.
func (r *RequestLifecycle) Ping(ctx context.Context) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		err := r.transport.Ping(pctx)
		_ = r.resolve(ctx, domain.PingResolved{OK: err == nil})
	}()
}

// Wait blocks until every started call has reported back.
func (r *RequestLifecycle) Wait() {
	r.inflight.Wait()
}

// fetch never panics and never returns an empty failure message.
func (r *RequestLifecycle) fetch(ctx context.Context, endpointID string, ring orb.Ring) (res domain.QueryResult) {
	defer func() {
		if p := recover(); p != nil {
			res = domain.Failed(fmt.Sprintf("request to %s panicked: %v", endpointID, p))
		}
	}()

	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := r.transport.Fetch(fctx, endpointID, ring)
	if err != nil {
		return domain.Failed(err.Error())
	}
	return domain.Succeeded(payload)
}
