package tags

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/health"
)

// ProviderHealthChecker monitors tag provider reachability through the
// provider's optional HealthPinger. Providers without a backend to probe
// (keyword extraction runs in-process) always count as healthy.
type ProviderHealthChecker struct {
	gen          Generator
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewProviderHealthChecker creates a checker for the given provider.
func NewProviderHealthChecker(gen Generator, log zerolog.Logger, probeTimeout time.Duration) *ProviderHealthChecker {
	hc := &ProviderHealthChecker{gen: gen, log: log, probeTimeout: probeTimeout}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

func (hc *ProviderHealthChecker) Name() string    { return "tag-provider" }
func (hc *ProviderHealthChecker) IsHealthy() bool { return hc.healthy.Load() == 1 }

func (hc *ProviderHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		to := hc.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		ok := true
		if p, okCast := hc.gen.(health.HealthPinger); okCast {
			if err := p.HealthPing(checkCtx); err != nil {
				ok = false
				hc.log.Warn().Str("checker", hc.Name()).Err(err).Msg("tag provider unreachable")
			}
		}
		if ok {
			hc.healthy.Store(1)
		} else {
			hc.healthy.Store(0)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
