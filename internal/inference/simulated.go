package inference

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultPrompt stands in for the last message when a request has none.
	DefaultPrompt = "Hello"
	// echoRunes is how much of the last message the demo response repeats.
	echoRunes = 50
)

// Simulated waits a fixed delay and returns a templated echo of the last
// message. It never calls out of process.
type Simulated struct {
	Delay time.Duration
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Infer(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text := fmt.Sprintf("[%s] Analyzed: %s... (Demo Response)", req.Model, truncateRunes(req.LastContent(DefaultPrompt), echoRunes))
	return Result{Text: text, LatencyMs: time.Since(start).Milliseconds()}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
