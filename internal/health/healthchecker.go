package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by component-level checkers (store, tag provider).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// ServiceHealthChecker aggregates component checkers into a single service
// health flag. Only required checkers gate the flag; informational ones are
// reported per component but never take the service down. The tag provider
// is informational: entries must keep saving while it is unreachable.
type ServiceHealthChecker struct {
	healthy atomic.Int32
	log     zerolog.Logger

	mu       sync.RWMutex
	required []HealthChecker
	info     []HealthChecker
}

func NewServiceHealthChecker(log zerolog.Logger, required ...HealthChecker) *ServiceHealthChecker {
	h := &ServiceHealthChecker{required: required, log: log}
	h.healthy.Store(0)
	return h
}

// AddInformational registers checkers that show up in Components but never
// gate IsHealthy.
func (h *ServiceHealthChecker) AddInformational(deps ...HealthChecker) {
	h.mu.Lock()
	h.info = append(h.info, deps...)
	h.mu.Unlock()
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Components returns the current state of every registered checker, keyed
// by checker name.
func (h *ServiceHealthChecker) Components() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]bool, len(h.required)+len(h.info))
	for _, c := range h.required {
		out[c.Name()] = c.IsHealthy()
	}
	for _, c := range h.info {
		out[c.Name()] = c.IsHealthy()
	}
	return out
}

// Start periodically evaluates required dependency health and updates the
// service flag, logging transitions with the components that are down.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(0)
	eval := func() {
		var down []string
		h.mu.RLock()
		for _, c := range h.required {
			if !c.IsHealthy() {
				down = append(down, c.Name())
			}
		}
		h.mu.RUnlock()

		if len(down) == 0 {
			h.healthy.Store(1)
		} else {
			h.healthy.Store(0)
		}
		cur := h.healthy.Load()
		if cur != prev {
			if cur == 1 {
				h.log.Info().Msg("service health: UP")
			} else {
				h.log.Error().Strs("down", down).Msg("service health: DOWN")
			}
			prev = cur
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
