package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	rerrors "inferd/internal/errors"
	"inferd/internal/inference"
	"inferd/internal/journal"
	"inferd/internal/registry"
)

// maxRequestBytes caps a decoded completion request body.
const maxRequestBytes = 1 << 20

// ChatCompletionRequest is the OpenAI-style request body
type ChatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []inference.Message `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// ChatCompletionResponse is returned for a successful completion
type ChatCompletionResponse struct {
	ID                 string       `json:"id"`
	Object             string       `json:"object"`
	Created            int64        `json:"created"`
	Model              string       `json:"model"`
	Choices            []ChatChoice `json:"choices"`
	Usage              Usage        `json:"usage"`
	SessionID          string       `json:"session_id"`
	InferenceLatencyMs int64        `json:"inference_latency_ms"`
}

// ChatChoice is one generated alternative; inferd always returns one.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      inference.Message `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// Usage holds the character-based token estimates
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EstimateUsage approximates token counts as character count / 4. The
// prompt is every message content joined with single spaces.
func EstimateUsage(msgs []inference.Message, completion string) Usage {
	contents := make([]string, len(msgs))
	for i, m := range msgs {
		contents[i] = m.Content
	}
	promptLen := utf8.RuneCountInString(strings.Join(contents, " "))
	completionLen := utf8.RuneCountInString(completion)
	return Usage{
		PromptTokens:     promptLen / 4,
		CompletionTokens: completionLen / 4,
		TotalTokens:      (promptLen + completionLen) / 4,
	}
}

// handleChatCompletions runs one completion. Auth is checked before the
// body is read and before the registry is touched.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	result := s.verifier.AuthenticateRequest(r)
	if !result.Authenticated {
		s.logger.Warn("Rejected completion request",
			"reason", result.ErrorCode,
			"request_id", GetRequestID(r.Context()),
		)
		if s.metrics != nil {
			s.metrics.RecordAuthFailure(result.ErrorCode)
		}
		WriteRouterError(w, rerrors.New(rerrors.Unauthorized, result.ErrorMessage, nil))
		return
	}

	var req ChatCompletionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		BadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	// an empty list is allowed; the engine falls back to its default prompt
	if req.Messages == nil {
		BadRequest(w, "messages is required")
		return
	}
	if req.Stream {
		WriteRouterError(w, rerrors.New(rerrors.StreamingUnsupported, "Streaming responses are not supported", nil))
		return
	}

	// zero means unset, as with max_tokens
	temperature := s.cfg.Inference.DefaultTemperature
	if req.Temperature != nil && *req.Temperature != 0 {
		temperature = *req.Temperature
	}
	maxTokens := s.cfg.Inference.DefaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	sessionID := s.registry.CreateSession(req.Model)

	res, err := s.engine.Infer(r.Context(), inference.Request{
		Messages:    req.Messages,
		Model:       req.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		s.inferenceFailed(w, r, sessionID, req.Model, err)
		return
	}

	if err := s.registry.RecordInference(sessionID, res.LatencyMs); err != nil {
		// a reset between create and record drops the session; the
		// completion itself still succeeded
		s.logger.Warn("Inference recorded against unknown session",
			"session_id", sessionID,
			"code", string(rerrors.CodeOf(err)),
			"error", err.Error(),
		)
		if s.metrics != nil {
			s.metrics.RecordUnknownSession()
		}
	}

	resp := ChatCompletionResponse{
		ID:      registry.NewID(registry.CompletionPrefix),
		Object:  "text_completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []ChatChoice{{
			Index:        0,
			Message:      inference.Message{Role: "assistant", Content: res.Text},
			FinishReason: "stop",
		}},
		Usage:              EstimateUsage(req.Messages, res.Text),
		SessionID:          sessionID,
		InferenceLatencyMs: res.LatencyMs,
	}

	if s.metrics != nil {
		s.metrics.RecordInference(s.engine.Name(), "ok", time.Duration(res.LatencyMs)*time.Millisecond)
	}
	s.logger.Info("Inference complete",
		"session_id", sessionID,
		"model", req.Model,
		"engine", s.engine.Name(),
		"latency_ms", res.LatencyMs,
	)
	s.recordJournal(r.Context(), journal.Entry{
		CompletionID:     resp.ID,
		SessionID:        sessionID,
		Model:            req.Model,
		Engine:           s.engine.Name(),
		Status:           journal.StatusOK,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		LatencyMs:        res.LatencyMs,
	})

	WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) inferenceFailed(w http.ResponseWriter, r *http.Request, sessionID, model string, err error) {
	s.logger.Error("Inference error",
		"session_id", sessionID,
		"model", model,
		"engine", s.engine.Name(),
		"error", err.Error(),
		"request_id", GetRequestID(r.Context()),
	)
	if s.metrics != nil {
		s.metrics.RecordInference(s.engine.Name(), "error", 0)
	}
	s.recordJournal(r.Context(), journal.Entry{
		SessionID: sessionID,
		Model:     model,
		Engine:    s.engine.Name(),
		Status:    journal.StatusError,
		Error:     err.Error(),
	})

	message := err.Error()
	var ie *inference.Error
	if errors.As(err, &ie) && ie.Timeout() {
		message = "inference timed out"
	}
	WriteRouterError(w, rerrors.New(rerrors.InferenceFailure, message, err))
}

// recordJournal appends to the journal when one is configured. Journal
// failures are logged and never fail the request.
func (s *Server) recordJournal(ctx context.Context, e journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("Failed to write journal entry", "session_id", e.SessionID, "error", err.Error())
	}
}
