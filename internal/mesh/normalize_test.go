package mesh

import (
	"testing"

	logx "meshbridge/pkg/logx"
)

func newTestNormalizer() (*Normalizer, *Names) {
	names := NewNames()
	return NewNormalizer(names, logx.Nop()), names
}

func TestEligible(t *testing.T) {
	t.Parallel()
	tests := []struct {
		topic string
		want  bool
	}{
		{"meshtastic/json/2/text", true},
		{"msh/2/json/LongFast/!a1b2c3d4", true},
		{"meshtastic/binary/0", false},
		{"meshtastic/2/e/LongFast/!a1b2c3d4", false},
		{"jsonish/topic", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Eligible(tt.topic); got != tt.want {
			t.Fatalf("Eligible(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestNormalizeBinaryTopicDroppedBeforeParse(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	// Deliberately invalid JSON: it must never reach the parser.
	if _, ok := n.Normalize("meshtastic/binary/0", []byte{0x08, 0x01, 0xff}); ok {
		t.Fatal("binary-branch topic should be rejected")
	}
}

func TestNormalizeFromIDFormatting(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"small id pads", `{"type":"text","from":1,"text":"hi"}`, "!00000001"},
		{"large id", `{"type":"text","from":2661439304,"text":"hi"}`, "!9ea25748"},
		{"max uint32", `{"type":"text","from":4294967295,"text":"hi"}`, "!ffffffff"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, ok := n.Normalize("meshtastic/json/0/text", []byte(tt.raw))
			if !ok {
				t.Fatal("expected event")
			}
			if ev.FromID != tt.want {
				t.Fatalf("FromID = %q, want %q", ev.FromID, tt.want)
			}
		})
	}
}

func TestNormalizeSenderFallback(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	ev, ok := n.Normalize("meshtastic/json/0/text", []byte(`{"type":"text","sender":"!gateway","text":"hi"}`))
	if !ok {
		t.Fatal("expected event")
	}
	if ev.FromID != "!gateway" {
		t.Fatalf("FromID = %q, want verbatim sender", ev.FromID)
	}
}

func TestNormalizeRejections(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":`},
		{"no origin", `{"type":"text","text":"hi"}`},
		{"text without text", `{"type":"text","from":1}`},
		{"text with empty payload text", `{"type":"text","from":1,"payload":{}}`},
		{"non-numeric from", `{"type":"text","from":"abc","text":"hi"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, ok := n.Normalize("meshtastic/json/0/text", []byte(tt.raw)); ok {
				t.Fatal("expected rejection")
			}
		})
	}
}

func TestNormalizeChannelFromTopic(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	tests := []struct {
		topic string
		want  string
	}{
		{"meshtastic/json/2/text", "2"},
		{"msh/2/json/LongFast/!a1b2c3d4", "LongFast"},
		{"meshtastic/json", ""},
	}
	for _, tt := range tests {
		ev, ok := n.Normalize(tt.topic, []byte(`{"type":"text","from":1,"text":"hi"}`))
		if !ok {
			t.Fatalf("topic %q: expected event", tt.topic)
		}
		if ev.Channel != tt.want {
			t.Fatalf("topic %q: Channel = %q, want %q", tt.topic, ev.Channel, tt.want)
		}
	}
}

func TestNormalizeTextSources(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()

	ev, ok := n.Normalize("meshtastic/json/0/text", []byte(`{"type":"text","from":1,"payload":{"text":"from payload"}}`))
	if !ok || ev.Text != "from payload" {
		t.Fatalf("payload.text not used: %+v ok=%v", ev, ok)
	}

	ev, ok = n.Normalize("meshtastic/json/0/text", []byte(`{"type":"text","from":1,"text":"top level"}`))
	if !ok || ev.Text != "top level" {
		t.Fatalf("top-level text not used: %+v ok=%v", ev, ok)
	}
}

func TestNormalizeScalarFields(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	raw := `{"type":"text","from":1,"id":987654321,"timestamp":1735689600,"rssi":-92,"snr":5.25,"text":"hi"}`
	ev, ok := n.Normalize("meshtastic/json/0/text", []byte(raw))
	if !ok {
		t.Fatal("expected event")
	}
	if ev.ID != "987654321" {
		t.Fatalf("ID = %q (literal wire form expected)", ev.ID)
	}
	if !ev.HasTimestamp || ev.Timestamp != 1735689600 {
		t.Fatalf("timestamp = %v has=%v", ev.Timestamp, ev.HasTimestamp)
	}
	if ev.RSSI.String() != "-92" || ev.SNR.String() != "5.25" {
		t.Fatalf("signal metrics lost literal form: rssi=%q snr=%q", ev.RSSI, ev.SNR)
	}
}

func TestNormalizeUnknownType(t *testing.T) {
	t.Parallel()
	n, _ := newTestNormalizer()
	ev, ok := n.Normalize("meshtastic/json/0/x", []byte(`{"from":1}`))
	if !ok {
		t.Fatal("expected event")
	}
	if ev.Type != TypeUnknown {
		t.Fatalf("Type = %q, want unknown", ev.Type)
	}
}

func TestNormalizeNodeInfoUpdatesCache(t *testing.T) {
	t.Parallel()
	n, names := newTestNormalizer()
	raw := `{"type":"nodeinfo","from":158,"id":1,"payload":{"user":{"shortName":"AB","longName":"Alice Base"}}}`
	ev, ok := n.Normalize("meshtastic/json/0/nodeinfo", []byte(raw))
	if !ok {
		t.Fatal("expected event")
	}
	if got := names.Resolve(ev.FromID); got != "Alice Base" {
		t.Fatalf("cache not updated during normalize: Resolve = %q", got)
	}
	// The event itself was parsed before the update, so its display name is
	// whatever the cache held at that instant.
	if ev.FromDisplay != ev.FromID {
		t.Fatalf("FromDisplay resolved after update: %q", ev.FromDisplay)
	}

	// A second message resolves against the refreshed cache.
	ev2, _ := n.Normalize("meshtastic/json/0/text", []byte(`{"type":"text","from":158,"text":"hi"}`))
	if ev2.FromDisplay != "Alice Base" {
		t.Fatalf("FromDisplay = %q, want cached long name", ev2.FromDisplay)
	}
}

func TestNormalizeNodeInfoLowercaseKeys(t *testing.T) {
	t.Parallel()
	n, names := newTestNormalizer()
	raw := `{"type":"nodeinfo","from":158,"payload":{"user":{"shortname":"ab","longname":"alice base"}}}`
	if _, ok := n.Normalize("meshtastic/json/0/nodeinfo", []byte(raw)); !ok {
		t.Fatal("expected event")
	}
	if got := names.Resolve(FormatNodeID(158)); got != "alice base" {
		t.Fatalf("lowercase keys not tolerated: Resolve = %q", got)
	}
}

func TestFormatNodeID(t *testing.T) {
	t.Parallel()
	if got := FormatNodeID(0x9e9d5748); got != "!9e9d5748" {
		t.Fatalf("got %q", got)
	}
	if got := FormatNodeID(7); got != "!00000007" {
		t.Fatalf("got %q", got)
	}
}
