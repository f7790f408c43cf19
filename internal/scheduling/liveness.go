package scheduling

import "context"

// isReachable decides telescope freshness from its heartbeat. A missing
// heartbeat record counts as unreachable. The read happens on every call;
// caching a heartbeat across validations would defeat its purpose.
func (e *Engine) isReachable(ctx context.Context, telescopeID string) (bool, error) {
	last, ok, err := e.heartbeats.LastCommunication(ctx, telescopeID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return e.now().Sub(last) <= e.staleness, nil
}
