// Package mesh normalizes Meshtastic JSON MQTT messages into canonical
// events and tracks per-node identity plus duplicate suppression state.
package mesh

import (
	"encoding/json"
	"fmt"
)

// Type classifies an inbound message.
type Type string

const (
	TypeText      Type = "text"
	TypePosition  Type = "position"
	TypeTelemetry Type = "telemetry"
	TypeNodeInfo  Type = "nodeinfo"
	TypeUnknown   Type = "unknown"
)

// Event is the canonical form of one inbound mesh message.
//
// FromID is always non-empty; the normalizer refuses to build an event
// without an identifiable origin. Numeric fields keep their literal wire
// form (json.Number) so rendering never re-rounds upstream values.
type Event struct {
	Topic string
	Type  Type

	// ID is the dedup key in literal wire form; empty means the message
	// carried no id and can never be deduplicated.
	ID string

	// Timestamp is epoch seconds; HasTimestamp distinguishes 0 from absent.
	Timestamp    float64
	HasTimestamp bool

	FromID      string
	FromDisplay string

	// Channel is derived from the topic; empty when the topic has no
	// segment after the json marker.
	Channel string

	RSSI json.Number // "" = absent
	SNR  json.Number // "" = absent

	// Text is set only for text-type events.
	Text string

	// Payload is the nested payload object, when the message carried one
	// and it was a JSON object. Numbers inside are json.Number.
	Payload map[string]any
}

// FormatNodeID renders a 32-bit device number in the canonical
// "!xxxxxxxx" form used across the mesh.
func FormatNodeID(n uint32) string {
	return fmt.Sprintf("!%08x", n)
}
