package bridge

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"meshbridge/internal/discord"
	"meshbridge/internal/mesh"
)

const footerTimeFormat = "2006-01-02 15:04:05"

func buildTextEmbed(ev *mesh.Event) discord.Embed {
	e := discord.Embed{Title: "📡 Mesh Message", Color: discord.ColorMessage}
	e.AddField("From", fromValue(ev), false)
	if ev.Channel != "" {
		e.AddField("Channel", "#"+ev.Channel, false)
	}
	e.AddField("Signal", signalValue(ev), false)
	e.AddField("Message", ev.Text, false)
	e.SetFooter("Topic: " + ev.Topic)
	return e
}

func buildTelemetryEmbed(ev *mesh.Event) discord.Embed {
	title, color := telemetryTitle(ev.Type)
	e := discord.Embed{Title: title, Color: color}
	e.AddField("From", fromValue(ev), false)

	switch ev.Type {
	case mesh.TypePosition:
		addPositionFields(&e, ev.Payload)
	case mesh.TypeTelemetry:
		addDeviceMetricFields(&e, ev.Payload)
	case mesh.TypeNodeInfo:
		addNodeInfoFields(&e, ev.Payload)
	}

	e.AddField("Signal", signalValue(ev), false)
	if ev.HasTimestamp {
		ts := time.Unix(int64(ev.Timestamp), 0)
		e.SetFooter("Time: " + ts.Format(footerTimeFormat))
	}
	return e
}

func telemetryTitle(t mesh.Type) (string, int) {
	switch t {
	case mesh.TypePosition:
		return "📍 Position Update", discord.ColorPosition
	case mesh.TypeTelemetry:
		return "📊 Telemetry Update", discord.ColorTelemetry
	case mesh.TypeNodeInfo:
		return "ℹ️ Node Info Update", discord.ColorNodeInfo
	default:
		return "📡 " + capitalize(string(t)), discord.ColorGeneric
	}
}

// fromValue renders the resolved display name with the raw id appended when
// they differ, e.g. "Alice Base (!9e9d5748)".
func fromValue(ev *mesh.Event) string {
	if ev.FromDisplay != "" && ev.FromDisplay != ev.FromID {
		return fmt.Sprintf("%s (%s)", ev.FromDisplay, ev.FromID)
	}
	return ev.FromID
}

// signalValue joins the present signal metrics, e.g.
// "RSSI: -92 dBm | SNR: 5.25 dB". Empty when neither is present.
func signalValue(ev *mesh.Event) string {
	var parts []string
	if ev.RSSI != "" {
		parts = append(parts, "RSSI: "+ev.RSSI.String()+" dBm")
	}
	if ev.SNR != "" {
		parts = append(parts, "SNR: "+ev.SNR.String()+" dB")
	}
	return strings.Join(parts, " | ")
}

func addPositionFields(e *discord.Embed, payload map[string]any) {
	pos := mesh.ObjectFieldOrSelf(payload, "position")

	latN, latOK := mesh.NumberField(pos, "latitude_i", "latitudeI")
	lonN, lonOK := mesh.NumberField(pos, "longitude_i", "longitudeI")
	if latOK && lonOK {
		latI, ok1 := mesh.Float(latN)
		lonI, ok2 := mesh.Float(lonN)
		// (0, 0) means "no GPS fix", not the Gulf of Guinea.
		if ok1 && ok2 && (latI != 0 || lonI != 0) {
			lat := latI / 1e7
			lon := lonI / 1e7
			e.AddField("Location", fmt.Sprintf("%.6f, %.6f", lat, lon), false)
			e.AddField("Map", fmt.Sprintf("[Open in Google Maps](https://maps.google.com/?q=%s,%s)",
				strconv.FormatFloat(lat, 'f', -1, 64),
				strconv.FormatFloat(lon, 'f', -1, 64)), false)
		}
	}

	if alt, ok := mesh.ScalarField(pos, "altitude"); ok {
		e.AddField("Altitude", alt+" m", true)
	}
	if sats, ok := mesh.ScalarField(pos, "sats_in_view", "satsInView"); ok {
		e.AddField("Satellites", sats, true)
	}
}

func addDeviceMetricFields(e *discord.Embed, payload map[string]any) {
	metrics := mesh.ObjectFieldOrSelf(payload, "device_metrics")

	if n, ok := mesh.NumberField(metrics, "battery_level"); ok {
		if battery, ok := mesh.Float(n); ok {
			marker := "🔋"
			if battery <= 20 {
				marker = "🪫"
			}
			e.AddField("Battery", fmt.Sprintf("%s %s%%", marker, n.String()), true)
		}
	}
	if n, ok := mesh.NumberField(metrics, "voltage"); ok {
		if v, ok := mesh.Float(n); ok {
			e.AddField("Voltage", fmt.Sprintf("%.2f V", v), true)
		}
	}
	if n, ok := mesh.NumberField(metrics, "channel_utilization"); ok {
		if v, ok := mesh.Float(n); ok {
			e.AddField("Channel Utilization", fmt.Sprintf("%.1f%%", v), true)
		}
	}
	if n, ok := mesh.NumberField(metrics, "air_util_tx"); ok {
		if v, ok := mesh.Float(n); ok {
			e.AddField("Air Util TX", fmt.Sprintf("%.2f%%", v), true)
		}
	}
}

func addNodeInfoFields(e *discord.Embed, payload map[string]any) {
	user := mesh.ObjectFieldOrSelf(payload, "user")

	if long, ok := mesh.StringField(user, "longName", "longname"); ok {
		e.AddField("Long Name", long, false)
	}
	if short, ok := mesh.StringField(user, "shortName", "shortname"); ok {
		e.AddField("Short Name", short, true)
	}
	hw, ok := mesh.ScalarField(user, "hwModel", "hardwareModel")
	if !ok {
		hw, ok = mesh.ScalarField(payload, "hardwareModel")
	}
	if ok {
		e.AddField("Hardware", hw, true)
	}
	if fw, ok := mesh.StringField(payload, "firmware_version", "firmwareVersion"); ok {
		e.AddField("Firmware", fw, true)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
