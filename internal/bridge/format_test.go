package bridge

import (
	"encoding/json"
	"testing"

	"meshbridge/internal/discord"
	"meshbridge/internal/mesh"
)

func fieldValue(t *testing.T, e discord.Embed, name string) string {
	t.Helper()
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func hasField(e discord.Embed, name string) bool {
	for _, f := range e.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func TestBuildTextEmbed(t *testing.T) {
	t.Parallel()
	ev := &mesh.Event{
		Topic:       "msh/2/json/LongFast/!a1b2c3d4",
		Type:        mesh.TypeText,
		FromID:      "!a1b2c3d4",
		FromDisplay: "Alice Base",
		Channel:     "LongFast",
		RSSI:        json.Number("-92"),
		SNR:         json.Number("5.25"),
		Text:        "hello mesh",
	}

	e := buildTextEmbed(ev)
	if e.Title != "📡 Mesh Message" || e.Color != discord.ColorMessage {
		t.Fatalf("title/color = %q/%#x", e.Title, e.Color)
	}
	if got := fieldValue(t, e, "From"); got != "Alice Base (!a1b2c3d4)" {
		t.Errorf("From = %q", got)
	}
	if got := fieldValue(t, e, "Channel"); got != "#LongFast" {
		t.Errorf("Channel = %q", got)
	}
	if got := fieldValue(t, e, "Signal"); got != "RSSI: -92 dBm | SNR: 5.25 dB" {
		t.Errorf("Signal = %q", got)
	}
	if got := fieldValue(t, e, "Message"); got != "hello mesh" {
		t.Errorf("Message = %q", got)
	}
	if e.Footer == nil || e.Footer.Text != "Topic: msh/2/json/LongFast/!a1b2c3d4" {
		t.Errorf("Footer = %+v", e.Footer)
	}
}

func TestBuildTextEmbedUnresolvedFrom(t *testing.T) {
	t.Parallel()
	ev := &mesh.Event{
		Type:        mesh.TypeText,
		FromID:      "!a1b2c3d4",
		FromDisplay: "!a1b2c3d4",
		Text:        "hi",
	}
	e := buildTextEmbed(ev)
	if got := fieldValue(t, e, "From"); got != "!a1b2c3d4" {
		t.Errorf("From = %q, want bare id when unresolved", got)
	}
	if hasField(e, "Channel") {
		t.Error("empty channel should not render a field")
	}
	if hasField(e, "Signal") {
		t.Error("missing signal metrics should not render a field")
	}
}

func TestBuildPositionEmbed(t *testing.T) {
	t.Parallel()
	ev := &mesh.Event{
		Type:         mesh.TypePosition,
		FromID:       "!a1b2c3d4",
		FromDisplay:  "!a1b2c3d4",
		Timestamp:    1748779200,
		HasTimestamp: true,
		Payload: map[string]any{
			"latitude_i":   json.Number("520512340"),
			"longitude_i":  json.Number("-13876540"),
			"altitude":     json.Number("87"),
			"sats_in_view": json.Number("9"),
		},
	}

	e := buildTelemetryEmbed(ev)
	if e.Title != "📍 Position Update" || e.Color != discord.ColorPosition {
		t.Fatalf("title/color = %q/%#x", e.Title, e.Color)
	}
	if got := fieldValue(t, e, "Location"); got != "52.051234, -1.387654" {
		t.Errorf("Location = %q", got)
	}
	if got := fieldValue(t, e, "Map"); got != "[Open in Google Maps](https://maps.google.com/?q=52.051234,-1.387654)" {
		t.Errorf("Map = %q", got)
	}
	if got := fieldValue(t, e, "Altitude"); got != "87 m" {
		t.Errorf("Altitude = %q", got)
	}
	if got := fieldValue(t, e, "Satellites"); got != "9" {
		t.Errorf("Satellites = %q", got)
	}
	if e.Footer == nil || e.Footer.Text == "" {
		t.Error("expected Time footer for timestamped event")
	}
}

func TestBuildPositionEmbedNoFix(t *testing.T) {
	t.Parallel()
	ev := &mesh.Event{
		Type:        mesh.TypePosition,
		FromID:      "!a1b2c3d4",
		FromDisplay: "!a1b2c3d4",
		Payload: map[string]any{
			"position": map[string]any{
				"latitude_i":  json.Number("0"),
				"longitude_i": json.Number("0"),
			},
		},
	}
	e := buildTelemetryEmbed(ev)
	if hasField(e, "Location") || hasField(e, "Map") {
		t.Error("(0, 0) coordinates must not render location fields")
	}
}

func TestBuildTelemetryMetricsEmbed(t *testing.T) {
	t.Parallel()
	ev := &mesh.Event{
		Type:        mesh.TypeTelemetry,
		FromID:      "!a1b2c3d4",
		FromDisplay: "!a1b2c3d4",
		Payload: map[string]any{
			"device_metrics": map[string]any{
				"battery_level":       json.Number("78"),
				"voltage":             json.Number("4.087"),
				"channel_utilization": json.Number("3.14159"),
				"air_util_tx":         json.Number("1.005"),
			},
		},
	}

	e := buildTelemetryEmbed(ev)
	if e.Title != "📊 Telemetry Update" || e.Color != discord.ColorTelemetry {
		t.Fatalf("title/color = %q/%#x", e.Title, e.Color)
	}
	if got := fieldValue(t, e, "Battery"); got != "🔋 78%" {
		t.Errorf("Battery = %q", got)
	}
	if got := fieldValue(t, e, "Voltage"); got != "4.09 V" {
		t.Errorf("Voltage = %q", got)
	}
	if got := fieldValue(t, e, "Channel Utilization"); got != "3.1%" {
		t.Errorf("Channel Utilization = %q", got)
	}
	if got := fieldValue(t, e, "Air Util TX"); got != "1.00%" {
		t.Errorf("Air Util TX = %q", got)
	}
}

func TestBatteryMarkerBoundary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		level string
		want  string
	}{
		{"21", "🔋 21%"},
		{"20", "🪫 20%"},
		{"5", "🪫 5%"},
		{"100", "🔋 100%"},
	}
	for _, tt := range tests {
		ev := &mesh.Event{
			Type:        mesh.TypeTelemetry,
			FromID:      "!00000001",
			FromDisplay: "!00000001",
			Payload: map[string]any{
				"device_metrics": map[string]any{"battery_level": json.Number(tt.level)},
			},
		}
		e := buildTelemetryEmbed(ev)
		if got := fieldValue(t, e, "Battery"); got != tt.want {
			t.Errorf("battery %s: got %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestBuildNodeInfoEmbed(t *testing.T) {
	t.Parallel()
	ev := &mesh.Event{
		Type:        mesh.TypeNodeInfo,
		FromID:      "!a1b2c3d4",
		FromDisplay: "Alice Base",
		Payload: map[string]any{
			"user": map[string]any{
				"longName":  "Alice Base",
				"shortName": "AB",
				"hwModel":   "TBEAM",
			},
			"firmware_version": "2.3.2",
		},
	}

	e := buildTelemetryEmbed(ev)
	if e.Title != "ℹ️ Node Info Update" || e.Color != discord.ColorNodeInfo {
		t.Fatalf("title/color = %q/%#x", e.Title, e.Color)
	}
	if got := fieldValue(t, e, "Long Name"); got != "Alice Base" {
		t.Errorf("Long Name = %q", got)
	}
	if got := fieldValue(t, e, "Short Name"); got != "AB" {
		t.Errorf("Short Name = %q", got)
	}
	if got := fieldValue(t, e, "Hardware"); got != "TBEAM" {
		t.Errorf("Hardware = %q", got)
	}
	if got := fieldValue(t, e, "Firmware"); got != "2.3.2" {
		t.Errorf("Firmware = %q", got)
	}
}

func TestTelemetryTitleFallback(t *testing.T) {
	t.Parallel()
	title, color := telemetryTitle(mesh.Type("waypoint"))
	if title != "📡 Waypoint" || color != discord.ColorGeneric {
		t.Fatalf("fallback title/color = %q/%#x", title, color)
	}
}
