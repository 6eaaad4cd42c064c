package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimited},
		{500, KindServer},
		{503, KindServer},
		{400, KindBadRequest},
		{404, KindBadRequest},
		{0, KindTransport},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			if got := kindForStatus(tt.code); got != tt.want {
				t.Errorf("kindForStatus(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if err := classify(ProviderOpenAI, nil); err != nil {
			t.Errorf("classify(nil) = %v, want nil", err)
		}
	})

	t.Run("deadline stays matchable", func(t *testing.T) {
		err := classify(ProviderGemini, fmt.Errorf("call: %w", context.DeadlineExceeded))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected errors.Is(DeadlineExceeded), got %v", err)
		}
		var le *Error
		if !errors.As(err, &le) || le.Kind != KindTransport {
			t.Errorf("expected transport *Error, got %v", err)
		}
	})

	t.Run("already classified is kept", func(t *testing.T) {
		orig := &Error{Provider: ProviderOllama, Kind: KindAuth, StatusCode: 401, Err: errors.New("no")}
		if got := classify(ProviderOpenAI, orig); got != error(orig) {
			t.Errorf("classify re-wrapped an *Error: %v", got)
		}
	})
}

func TestErrorRetryable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindAuth, false},
		{KindBadRequest, false},
		{KindEmpty, false},
		{KindRateLimited, true},
		{KindServer, true},
		{KindTransport, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &Error{Kind: tt.kind, Err: errors.New("x")}
			if got := e.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenAIProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"invalid key", http.StatusUnauthorized, KindAuth},
		{"quota", http.StatusTooManyRequests, KindRateLimited},
		{"outage", http.StatusInternalServerError, KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"error"}}`)
			}))
			defer srv.Close()

			p := newOpenAI("sk-fake", "gpt-4o", srv.URL+"/v1")
			_, err := p.Complete(context.Background(), "sys", "prompt", nil)
			var le *Error
			if !errors.As(err, &le) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if le.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", le.Kind, tt.want)
			}
			if le.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", le.StatusCode, tt.status)
			}
			if calls != 1 {
				t.Errorf("server called %d times, want 1", calls)
			}
		})
	}
}

func TestOpenAIProvider_Success(t *testing.T) {
	var gotTemp float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotTemp, _ = body["temperature"].(float64)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"hello"}}]}`)
	}))
	defer srv.Close()

	p := newOpenAI("sk-fake", "gpt-4o", srv.URL+"/v1")
	got, err := p.Complete(context.Background(), "sys", "prompt", &CompleteOptions{Temperature: Temp(0.25)})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete() = %q, want %q", got, "hello")
	}
	if gotTemp != 0.25 {
		t.Errorf("temperature sent = %v, want 0.25", gotTemp)
	}
}

func TestOllamaProvider(t *testing.T) {
	t.Run("passes options and returns response", func(t *testing.T) {
		var req ollamaRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/generate" {
				t.Errorf("path = %q, want /api/generate", r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			fmt.Fprint(w, `{"response":"{\"comments\":[]}","done":true}`)
		}))
		defer srv.Close()

		p := newOllama(srv.URL, "llama3")
		got, err := p.Complete(context.Background(), "sys", "prompt", &CompleteOptions{Temperature: Temp(0.5)})
		if err != nil {
			t.Fatalf("Complete() error: %v", err)
		}
		if got != `{"comments":[]}` {
			t.Errorf("Complete() = %q", got)
		}
		if req.Options["temperature"] != 0.5 {
			t.Errorf("temperature option = %v, want 0.5", req.Options["temperature"])
		}
		if req.System != "sys" || req.Model != "llama3" {
			t.Errorf("request = %+v", req)
		}
	})

	t.Run("status is classified", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newOllama(srv.URL, "llama3").Complete(context.Background(), "s", "p", nil)
		var le *Error
		if !errors.As(err, &le) || le.Kind != KindServer {
			t.Errorf("expected server *Error, got %v", err)
		}
	})

	t.Run("empty response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"response":"","done":true}`)
		}))
		defer srv.Close()

		_, err := newOllama(srv.URL, "llama3").Complete(context.Background(), "s", "p", nil)
		var le *Error
		if !errors.As(err, &le) || le.Kind != KindEmpty {
			t.Errorf("expected empty-response *Error, got %v", err)
		}
	})
}
