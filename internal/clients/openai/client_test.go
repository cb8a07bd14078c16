package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
)

var testSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title": map[string]any{"type": "string"},
	},
	"required":             []any{"title"},
	"additionalProperties": false,
}

func testClient(srv *httptest.Server, maxRetries int) *client {
	return &client{
		log:        logger.NewNop(),
		baseURL:    srv.URL,
		apiKey:     "test-key",
		model:      "test-model",
		httpClient: srv.Client(),
		maxRetries: maxRetries,
	}
}

func outputTextResponse(text string) map[string]any {
	return map[string]any{
		"output": []any{
			map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
	}
}

func TestGenerateJSON(t *testing.T) {
	var gotBody responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(outputTextResponse(`{"title": "Intro to Databases"}`))
	}))
	defer srv.Close()

	c := testClient(srv, 0)
	obj, err := c.GenerateJSON(context.Background(), "system prompt", "user prompt", "course-outline", testSchema, 1024)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if obj["title"] != "Intro to Databases" {
		t.Errorf("title = %v", obj["title"])
	}

	if gotBody.Model != "test-model" {
		t.Errorf("request model = %q", gotBody.Model)
	}
	if len(gotBody.Input) != 2 || gotBody.Input[0].Role != "system" || gotBody.Input[1].Role != "user" {
		t.Errorf("request input = %+v", gotBody.Input)
	}
	if gotBody.MaxOutputTokens != 1024 {
		t.Errorf("max_output_tokens = %d", gotBody.MaxOutputTokens)
	}
	format := gotBody.Text.Format
	if format["type"] != "json_schema" || format["name"] != "course-outline" || format["strict"] != true {
		t.Errorf("text.format = %v", format)
	}
}

func TestGenerateJSONRetriesOnOverload(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(outputTextResponse(`{"title": "ok"}`))
	}))
	defer srv.Close()

	c := testClient(srv, 2)
	if _, err := c.GenerateJSON(context.Background(), "s", "u", "n", testSchema, 64); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestGenerateJSONRetriesExhausted(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv, 1)
	_, err := c.GenerateJSON(context.Background(), "s", "u", "n", testSchema, 64)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	var hErr *httpError
	if !errors.As(err, &hErr) || hErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("error = %v, want http 503", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (initial plus one retry)", attempts)
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv, 3)
	if _, err := c.GenerateJSON(context.Background(), "s", "u", "n", testSchema, 64); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retryable status", attempts)
	}
}

func TestGenerateJSONBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		wantSub string
	}{
		{name: "refusal", payload: map[string]any{"refusal": "no"}, wantSub: "refused"},
		{name: "no output text", payload: map[string]any{"output": []any{}}, wantSub: "no output_text"},
		{name: "output text is not json", payload: outputTextResponse("plain prose"), wantSub: "parse model JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.payload)
			}))
			defer srv.Close()

			c := testClient(srv, 0)
			_, err := c.GenerateJSON(context.Background(), "s", "u", "n", testSchema, 64)
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestGenerateJSONValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server reached despite invalid arguments")
	}))
	defer srv.Close()

	c := testClient(srv, 0)
	if _, err := c.GenerateJSON(context.Background(), "s", "u", "", testSchema, 64); err == nil {
		t.Error("missing schema name accepted")
	}
	if _, err := c.GenerateJSON(context.Background(), "s", "u", "n", nil, 64); err == nil {
		t.Error("nil schema accepted")
	}
}
