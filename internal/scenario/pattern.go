package scenario

import "time"

// Pattern names accepted by scenario configs.
const (
	PatternSteady = "steady"
	PatternBurst  = "burst"
	PatternRamp   = "ramp"
)

// pacedRate returns the target spawn rate in ops/sec at a point in a
// steady or ramp run. Burst runs are shaped by whole bursts instead.
func (r *Runner) pacedRate(elapsed time.Duration) float64 {
	cfg := r.cfg
	switch cfg.Pattern {
	case PatternRamp:
		steps := cfg.RampSteps
		if steps <= 1 {
			return float64(cfg.RampEndRate)
		}
		stepDur := cfg.Duration / time.Duration(steps)
		if stepDur <= 0 {
			return float64(cfg.RampEndRate)
		}
		idx := int(elapsed / stepDur)
		if idx >= steps {
			idx = steps - 1
		}
		span := float64(cfg.RampEndRate-cfg.RampStartRate) / float64(steps-1)
		return float64(cfg.RampStartRate) + span*float64(idx)
	default:
		return float64(cfg.SpawnRatePerSec)
	}
}
