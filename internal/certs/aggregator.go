package certs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boundarygw/ic-gateway/internal/gwlog"
	"github.com/boundarygw/ic-gateway/internal/metrics"
)

// Provider fetches the set of certificates it is currently responsible
// for. A provider call is expected to be idempotent and safe to retry
// every poll round.
type Provider interface {
	Name() string
	GetCertificates(ctx context.Context) ([]Record, error)
}

// Aggregator polls every registered Provider on a fixed interval and
// publishes an all-or-nothing snapshot to Store: any provider error
// skips the publish for that round, retaining the previous snapshot.
type Aggregator struct {
	Store        *Store
	Providers    []Provider
	PollInterval time.Duration
}

// NewAggregator builds an Aggregator writing into store.
func NewAggregator(store *Store, providers []Provider, pollInterval time.Duration) *Aggregator {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Aggregator{Store: store, Providers: providers, PollInterval: pollInterval}
}

// Name identifies this task to the supervisor.
func (a *Aggregator) Name() string { return "cert_aggregator" }

// Run ticks every PollInterval, fetching from all providers concurrently
// and publishing a flattened snapshot on full success. It returns nil
// when ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.fetchAndPublish(ctx)
		}
	}
}

func (a *Aggregator) fetchAndPublish(ctx context.Context) {
	roundCtx, cancel := context.WithTimeout(ctx, a.PollInterval)
	defer cancel()

	results := make([][]Record, len(a.Providers))
	g, gctx := errgroup.WithContext(roundCtx)
	for i, p := range a.Providers {
		i, p := i, p
		g.Go(func() error {
			recs, err := p.GetCertificates(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			results[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		gwlog.Warning("cert aggregator: round skipped, provider error: %v", err)
		metrics.CertRoundOutcome("skipped")
		return
	}

	var flattened []Record
	for i, recs := range results {
		flattened = append(flattened, recs...)
		gwlog.Debug("cert aggregator: provider %s contributed %d record(s)", a.Providers[i].Name(), len(recs))
	}

	if len(flattened) == 0 {
		gwlog.Warning("cert aggregator: round produced zero records, not publishing")
		metrics.CertRoundOutcome("empty")
		return
	}

	a.Store.Publish(flattened)
	metrics.CertRoundOutcome("published")
	metrics.CertsLoaded(len(flattened))
	gwlog.Info("cert aggregator: published %d certificate record(s) from %d provider(s)", len(flattened), len(a.Providers))
}
