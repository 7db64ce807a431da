package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inferd/internal/config"
)

func helloRequest(model string) Request {
	return Request{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: "Hello"}},
		Temperature: 0.7,
		MaxTokens:   2048,
	}
}

func TestSimulated_Template(t *testing.T) {
	e := NewSimulated(0)

	res, err := e.Infer(context.Background(), helloRequest("demo-model"))
	require.NoError(t, err)
	assert.Equal(t, "[demo-model] Analyzed: Hello... (Demo Response)", res.Text)
}

func TestSimulated_UsesLastMessage(t *testing.T) {
	e := NewSimulated(0)
	req := Request{Model: "m", Messages: []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "first"},
		{Role: "user", Content: "second"},
	}}

	res, err := e.Infer(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Analyzed: second...")
}

func TestSimulated_DefaultPrompt(t *testing.T) {
	res, err := NewSimulated(0).Infer(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "[m] Analyzed: Hello... (Demo Response)", res.Text)
}

func TestSimulated_Truncates(t *testing.T) {
	long := strings.Repeat("a", 49) + "é" + strings.Repeat("b", 30)
	res, err := NewSimulated(0).Infer(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: "user", Content: long}},
	})
	require.NoError(t, err)

	want := "[m] Analyzed: " + strings.Repeat("a", 49) + "é" + "... (Demo Response)"
	assert.Equal(t, want, res.Text)
}

func TestSimulated_Delay(t *testing.T) {
	e := NewTimed(NewSimulated(30*time.Millisecond), 0)

	res, err := e.Infer(context.Background(), helloRequest("m"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(30))
}

func TestSimulated_Cancellation(t *testing.T) {
	e := NewSimulated(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := e.Infer(ctx, helloRequest("m"))
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Infer did not return after cancel")
	}
}

type failingEngine struct{ err error }

func (f failingEngine) Name() string { return "failing" }
func (f failingEngine) Infer(context.Context, Request) (Result, error) {
	return Result{}, f.err
}

func TestTimed_WrapsErrors(t *testing.T) {
	cause := errors.New("backend unavailable")
	e := NewTimed(failingEngine{err: cause}, 0)

	_, err := e.Infer(context.Background(), helloRequest("m"))
	require.Error(t, err)

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "failing", ie.Engine)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "inference engine failing: backend unavailable", err.Error())
	assert.False(t, ie.Timeout())
}

func TestTimed_KeepsExistingError(t *testing.T) {
	inner := &Error{Engine: "inner", Err: errors.New("x")}
	_, err := NewTimed(failingEngine{err: inner}, 0).Infer(context.Background(), Request{})

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "inner", ie.Engine)
}

func TestTimed_Timeout(t *testing.T) {
	e := NewTimed(NewSimulated(time.Hour), 20*time.Millisecond)

	_, err := e.Infer(context.Background(), helloRequest("m"))
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.True(t, ie.Timeout())
	assert.Equal(t, "simulated", e.Name())
}

func TestNew(t *testing.T) {
	tests := []struct {
		engine   string
		wantName string
		wantErr  bool
	}{
		{config.EngineSimulated, "simulated", false},
		{"", "simulated", false},
		{config.EngineOpenAI, "openai", false},
		{config.EngineAnthropic, "anthropic", false},
		{"llama", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			cfg := config.DefaultConfig().Inference
			cfg.Engine = tt.engine
			cfg.APIKey = "test-key"

			e, err := New(cfg)
			if tt.wantErr {
				var cfgErr *config.ConfigError
				assert.ErrorAs(t, err, &cfgErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, e.Name())
			_, isTimed := e.(*Timed)
			assert.True(t, isTimed, "engines are wrapped in Timed")
		})
	}
}

func TestOpenAI_Infer(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer provider-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-abc",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gemini-2.0-flash",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi from upstream"}, "finish_reason": "stop"}]
		}`)
	}))
	defer srv.Close()

	e := NewOpenAI("provider-key", srv.URL+"/v1/")
	req := Request{
		Model:       "gemini-2.0-flash",
		Messages:    []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "Hello"}},
		Temperature: 0.2,
		MaxTokens:   64,
	}
	res, err := e.Infer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hi from upstream", res.Text)

	assert.Equal(t, "gemini-2.0-flash", got["model"])
	assert.Equal(t, 0.2, got["temperature"])
	assert.Equal(t, float64(64), got["max_tokens"])
	msgs, ok := got["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
}

func TestOpenAI_UpstreamError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer srv.Close()

	e := NewTimed(NewOpenAI("k", srv.URL+"/v1/"), 5*time.Second)
	_, err := e.Infer(context.Background(), helloRequest("m"))

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "openai", ie.Engine)
	assert.Equal(t, 1, calls, "failed calls are not retried")
}

func TestAnthropic_Infer(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "provider-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Hi "}, {"type": "text", "text": "there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	e := NewAnthropic("provider-key", srv.URL)
	res, err := e.Infer(context.Background(), Request{
		Model:       "claude-test",
		Messages:    []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "Hello"}},
		Temperature: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", res.Text)

	assert.Equal(t, "claude-test", got["model"])
	assert.Equal(t, float64(anthropicMaxTokens), got["max_tokens"])
	system, ok := got["system"].([]interface{})
	require.True(t, ok, "system messages go to the system field")
	assert.Equal(t, "be brief", system[0].(map[string]interface{})["text"])
	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]interface{})["role"])
}

func TestLastContent(t *testing.T) {
	assert.Equal(t, "fallback", Request{}.LastContent("fallback"))
	assert.Equal(t, "b", Request{Messages: []Message{{Content: "a"}, {Content: "b"}}}.LastContent("x"))
}
