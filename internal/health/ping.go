package health

import "context"

// HealthPinger is implemented by dependencies that can probe their own
// backend, such as the Ollama tag provider. HealthPing must return nil
// when the component is reachable.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
