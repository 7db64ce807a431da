// Package inference defines the contract between the request handlers and
// whatever produces completion text, plus the engines inferd ships with.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inferd/internal/config"
)

// Message is one role/content pair of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is everything an engine needs for one completion.
type Request struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
}

// LastContent returns the content of the final message, or fallback when
// there are no messages.
func (r Request) LastContent(fallback string) string {
	if len(r.Messages) == 0 {
		return fallback
	}
	return r.Messages[len(r.Messages)-1].Content
}

// Result is the text an engine produced and how long it took.
type Result struct {
	Text      string
	LatencyMs int64
}

// Engine produces completion text. Implementations must be safe for
// concurrent use and should return promptly when ctx is done.
type Engine interface {
	Name() string
	Infer(ctx context.Context, req Request) (Result, error)
}

// Error wraps any failure of an engine.
type Error struct {
	Engine string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference engine %s: %v", e.Engine, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the engine gave up because its deadline passed.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Timed wraps an engine with a per-call timeout and uniform latency
// measurement. Every error it returns is an *Error.
type Timed struct {
	Engine  Engine
	Timeout time.Duration
	now     func() time.Time
}

// NewTimed wraps e. A zero timeout leaves the caller's deadline alone.
func NewTimed(e Engine, timeout time.Duration) *Timed {
	return &Timed{Engine: e, Timeout: timeout, now: time.Now}
}

func (t *Timed) Name() string { return t.Engine.Name() }

// Infer runs the wrapped engine and sets LatencyMs to the measured wall time.
func (t *Timed) Infer(ctx context.Context, req Request) (Result, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := t.now()
	res, err := t.Engine.Infer(ctx, req)
	elapsed := t.now().Sub(start)
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return Result{}, err
		}
		return Result{}, &Error{Engine: t.Engine.Name(), Err: err}
	}

	res.LatencyMs = elapsed.Milliseconds()
	return res, nil
}

// New builds the engine selected by cfg.Engine, wrapped in Timed.
func New(cfg config.InferenceConfig) (Engine, error) {
	var e Engine
	switch cfg.Engine {
	case config.EngineSimulated, "":
		e = NewSimulated(time.Duration(cfg.DelayMs) * time.Millisecond)
	case config.EngineOpenAI:
		e = NewOpenAI(cfg.APIKey, cfg.BaseURL)
	case config.EngineAnthropic:
		e = NewAnthropic(cfg.APIKey, cfg.BaseURL)
	default:
		return nil, &config.ConfigError{Field: "inference.engine", Message: fmt.Sprintf("unknown engine %q", cfg.Engine)}
	}
	return NewTimed(e, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
}
