package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	logx "meshbridge/pkg/logx"
)

func testClient(url string, retryMax int) *Client {
	return NewClient(Config{
		URL:        url,
		RatePerSec: 1000,
		RetryMax:   retryMax,
		Timeout:    2 * time.Second,
	}, logx.Nop())
}

func TestSendPostsEmbedJSON(t *testing.T) {
	t.Parallel()
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	e := Embed{Title: "Mesh Message", Color: ColorMessage}
	e.AddField("From", "Alice Base (!00000001)", false)
	e.SetFooter("Topic: meshtastic/json/0/text")

	if err := testClient(srv.URL, 0).Send(context.Background(), e); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	if got.Embeds[0].Title != "Mesh Message" || got.Embeds[0].Color != ColorMessage {
		t.Fatalf("embed not preserved: %+v", got.Embeds[0])
	}
	if got.Embeds[0].Footer == nil || got.Embeds[0].Footer.Text != "Topic: meshtastic/json/0/text" {
		t.Fatalf("footer not preserved: %+v", got.Embeds[0].Footer)
	}
}

func TestSendRetriesOn429(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := testClient(srv.URL, 2).Send(context.Background(), Embed{Title: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestSendGivesUpAfterRetriesExhausted(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := testClient(srv.URL, 1).Send(context.Background(), Embed{Title: "x"}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (1 try + 1 retry)", calls.Load())
	}
}

func TestSendWithoutURL(t *testing.T) {
	t.Parallel()
	c := NewClient(Config{}, logx.Nop())
	if c.Configured() {
		t.Fatal("empty client reports configured")
	}
	if err := c.Send(context.Background(), Embed{Title: "x"}); err != ErrNoWebhook {
		t.Fatalf("err = %v, want ErrNoWebhook", err)
	}
}

func TestPostTextEmptyIsNoop(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	if err := testClient(srv.URL, 0).PostText(context.Background(), ""); err != nil {
		t.Fatalf("PostText: %v", err)
	}
}

func TestAddFieldSkipsEmptyValues(t *testing.T) {
	t.Parallel()
	var e Embed
	e.AddField("Signal", "", false)
	e.AddField("Message", "hi", false)
	if len(e.Fields) != 1 || e.Fields[0].Name != "Message" {
		t.Fatalf("fields = %+v", e.Fields)
	}
}
