package api

import (
	"net/http"

	"inferd/internal/version"
)

// handleOpenAPISpec returns the OpenAPI specification
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	spec := GenerateOpenAPISpec()
	paths := spec["paths"].(map[string]interface{})
	if !s.cfg.Server.EnableReset {
		delete(paths, PathReset)
	}
	if s.metrics == nil || !s.cfg.Metrics.Enabled {
		delete(paths, PathMetrics)
	}
	WriteJSON(w, spec, http.StatusOK)
}

func jsonResponse(description, schemaRef string) map[string]interface{} {
	resp := map[string]interface{}{"description": description}
	if schemaRef != "" {
		resp["content"] = map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": "#/components/schemas/" + schemaRef},
			},
		}
	}
	return resp
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, "Error")
}

// GenerateOpenAPISpec generates the OpenAPI specification for every route
// inferd can serve.
func GenerateOpenAPISpec() map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "inferd HTTP API",
			"version":     version.Version,
			"description": "OpenAI-style chat completion front-end with an in-memory session registry",
		},
		"servers": []map[string]interface{}{
			{
				"url":         "http://localhost:5010",
				"description": "Local development server",
			},
		},
		"paths": map[string]interface{}{
			PathChatCompletions: map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Create a chat completion",
					"description": "Authenticates the bearer key, opens a session for the request and runs the configured inference engine",
					"security":    []map[string]interface{}{{"bearerAuth": []string{}}},
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{"$ref": "#/components/schemas/ChatCompletionRequest"},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Completion result", "ChatCompletionResponse"),
						"400": errorResponse("Malformed body, missing fields or stream requested"),
						"401": errorResponse("Missing or invalid API key"),
						"500": errorResponse("Inference engine failure"),
					},
				},
			},
			PathHealth: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Liveness check with uptime and inference totals",
					"responses": map[string]interface{}{
						"200": jsonResponse("Server is healthy", "Health"),
					},
				},
			},
			PathStatus: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Router status",
					"description": "Session and latency statistics",
					"responses": map[string]interface{}{
						"200": jsonResponse("Router status", "Status"),
					},
				},
			},
			PathSessions: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List sessions",
					"description": "Every live session in creation order",
					"responses": map[string]interface{}{
						"200": jsonResponse("Session list", "SessionList"),
					},
				},
			},
			PathCreateSession: map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Create a session",
					"description": "Opens a session bound to the configured model",
					"responses": map[string]interface{}{
						"200": jsonResponse("Created session", "Session"),
					},
				},
			},
			PathReset: map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Reset router state",
					"description": "Drops every session and zeroes the counters. Intended for development.",
					"responses": map[string]interface{}{
						"200": jsonResponse("Reset complete", ""),
						"403": errorResponse("Reset is disabled"),
					},
				},
			},
			PathMetrics: map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Request, inference and registry metrics in Prometheus text format",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Metrics",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]interface{}{"type": "string"},
								},
							},
						},
					},
				},
			},
			PathOpenAPI: map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "OpenAPI document",
					"responses": map[string]interface{}{
						"200": jsonResponse("This document", ""),
					},
				},
			},
		},
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{
					"type":   "http",
					"scheme": "bearer",
				},
			},
			"schemas": map[string]interface{}{
				"Message": map[string]interface{}{
					"type":     "object",
					"required": []string{"role", "content"},
					"properties": map[string]interface{}{
						"role":    map[string]interface{}{"type": "string", "enum": []string{"system", "user", "assistant"}},
						"content": map[string]interface{}{"type": "string"},
					},
				},
				"ChatCompletionRequest": map[string]interface{}{
					"type":     "object",
					"required": []string{"messages"},
					"properties": map[string]interface{}{
						"model":       map[string]interface{}{"type": "string"},
						"messages":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"$ref": "#/components/schemas/Message"}},
						"temperature": map[string]interface{}{"type": "number"},
						"max_tokens":  map[string]interface{}{"type": "integer"},
						"stream":      map[string]interface{}{"type": "boolean", "description": "Must be false or absent"},
					},
				},
				"ChatCompletionResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":                   map[string]interface{}{"type": "string", "example": "chatcmpl_0123456789ab"},
						"object":               map[string]interface{}{"type": "string", "example": "text_completion"},
						"created":              map[string]interface{}{"type": "integer"},
						"model":                map[string]interface{}{"type": "string"},
						"choices":              map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
						"usage":                map[string]interface{}{"type": "object"},
						"session_id":           map[string]interface{}{"type": "string"},
						"inference_latency_ms": map[string]interface{}{"type": "integer"},
					},
				},
				"Health": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"status":                  map[string]interface{}{"type": "string"},
						"uptime_seconds":          map[string]interface{}{"type": "number"},
						"inference_engine":        map[string]interface{}{"type": "string"},
						"inference_request_count": map[string]interface{}{"type": "integer"},
						"model_name":              map[string]interface{}{"type": "string"},
						"server_start_time":       map[string]interface{}{"type": "string", "format": "date-time"},
						"boot_timestamp_unix":     map[string]interface{}{"type": "number"},
					},
				},
				"Status": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"status":                  map[string]interface{}{"type": "string"},
						"model_name":              map[string]interface{}{"type": "string"},
						"active_session_count":    map[string]interface{}{"type": "integer"},
						"inference_request_count": map[string]interface{}{"type": "integer"},
						"uptime_seconds":          map[string]interface{}{"type": "number"},
						"cache_enabled":           map[string]interface{}{"type": "boolean"},
						"api_version":             map[string]interface{}{"type": "string"},
						"total_inference_time_ms": map[string]interface{}{"type": "integer"},
						"average_latency_ms":      map[string]interface{}{"type": "number"},
					},
				},
				"Session": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"session_id":          map[string]interface{}{"type": "string", "example": "session_0123456789ab"},
						"created_at":          map[string]interface{}{"type": "string", "format": "date-time"},
						"model_name":          map[string]interface{}{"type": "string"},
						"inference_count":     map[string]interface{}{"type": "integer"},
						"last_inference_time": map[string]interface{}{"type": "string", "format": "date-time", "nullable": true},
					},
				},
				"SessionList": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"status":         map[string]interface{}{"type": "string"},
						"total_sessions": map[string]interface{}{"type": "integer"},
						"sessions":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"$ref": "#/components/schemas/Session"}},
					},
				},
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":          map[string]interface{}{"type": "string"},
						"code":           map[string]interface{}{"type": "string"},
						"detail":         map[string]interface{}{"type": "string"},
						"details":        map[string]interface{}{"type": "object"},
						"suggestedFixes": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
					},
				},
			},
		},
	}
}
