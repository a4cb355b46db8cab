package capture

import (
	"context"
	"sync"
	"time"
)

// pacer schedules replay events. Offset pacing holds each event until its
// recorded offset, scaled by the speed multiplier, has passed since replay
// start; a token bucket caps the absolute event rate on top of that.
// speed <= 0 disables offset pacing, maxPerSec <= 0 disables the cap.
type pacer struct {
	start  time.Time
	speed  float64
	bucket *tokenBucket
}

func newPacer(speed float64, maxPerSec int) *pacer {
	p := &pacer{
		start: time.Now(),
		speed: speed,
	}
	if maxPerSec > 0 {
		p.bucket = newTokenBucket(float64(maxPerSec), maxPerSec)
	}
	return p
}

// wait blocks until the event recorded at the given offset is due.
func (p *pacer) wait(ctx context.Context, elapsed time.Duration) error {
	if p.speed > 0 {
		target := p.start.Add(time.Duration(float64(elapsed) / p.speed))
		if d := time.Until(target); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	if p.bucket != nil {
		return p.bucket.wait(ctx)
	}
	return nil
}

// tokenBucket refills continuously at rate tokens per second up to burst.
type tokenBucket struct {
	mu       sync.Mutex
	rate     float64
	burst    int
	tokens   float64
	lastTime time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
	}
}

func (tb *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()
	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastTime = now
}

// wait blocks until a token is available or the context is cancelled.
func (tb *tokenBucket) wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		waitTime := time.Duration(deficit / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
