package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewLinkTokenIsURLSafeAndUnique(t *testing.T) {
	a, err := NewLinkToken(24)
	if err != nil {
		t.Fatalf("NewLinkToken: %v", err)
	}
	b, _ := NewLinkToken(24)
	if a == b {
		t.Fatalf("two tokens are equal")
	}
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("token %q is not URL safe", a)
	}
}

func TestHashLinkTokenIsStable(t *testing.T) {
	if HashLinkToken("abc") != HashLinkToken("abc") {
		t.Fatalf("hash is not deterministic")
	}
	if HashLinkToken("abc") == HashLinkToken("abd") {
		t.Fatalf("different tokens share a hash")
	}
	if len(HashLinkToken("abc")) != 128 {
		t.Fatalf("hash length = %d, want 128", len(HashLinkToken("abc")))
	}
}

func TestOpenAIClientGenerateReply(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":[
			{"type":"reasoning","role":"","content":[]},
			{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Strong communicator."}]}
		]}`))
	}))
	defer srv.Close()

	c := OpenAIClient{ApiKey: "sk-test", BaseURL: srv.URL, Model: "m-default", SystemPrompt: "be brief"}
	out, err := c.GenerateReply(context.Background(), "m-override", "corpus")
	if err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if out != "Strong communicator." {
		t.Fatalf("out = %q", out)
	}
	if got["model"] != "m-override" || got["instructions"] != "be brief" || got["input"] != "corpus" {
		t.Fatalf("request body = %v", got)
	}
}

func TestOpenAIClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := (OpenAIClient{BaseURL: srv.URL}).GenerateReply(context.Background(), "", "x"); err == nil {
		t.Fatalf("missing api key accepted")
	}
	_, err := (OpenAIClient{ApiKey: "k", BaseURL: srv.URL}).GenerateReply(context.Background(), "", "x")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want 429", err)
	}
}

func TestISO(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("BRT", -3*3600))
	if got := ISO(at); got != "2026-01-02T06:04:05Z" {
		t.Fatalf("ISO = %q", got)
	}
	if got := ISO(at.Add(1500 * time.Microsecond)); got != "2026-01-02T06:04:05.0015Z" {
		t.Fatalf("ISO = %q", got)
	}
}
