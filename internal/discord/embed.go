// Package discord posts notifications to Discord webhooks.
package discord

// Embed colors, one per message category.
const (
	ColorMessage   = 0x03b2f8
	ColorPosition  = 0x42f554
	ColorTelemetry = 0xf5a742
	ColorNodeInfo  = 0x4287f5
	ColorGeneric   = 0x808080
)

// Field is one named value inside an embed. Inline fields render side by
// side in the Discord client.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text string `json:"text"`
}

// Embed is a single webhook embed in Discord's wire shape.
type Embed struct {
	Title  string  `json:"title,omitempty"`
	Color  int     `json:"color,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer *Footer `json:"footer,omitempty"`
}

// AddField appends a field; empty values are skipped so callers can chain
// optional fields without presence checks.
func (e *Embed) AddField(name, value string, inline bool) {
	if value == "" {
		return
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: value, Inline: inline})
}

func (e *Embed) SetFooter(text string) {
	if text == "" {
		return
	}
	e.Footer = &Footer{Text: text}
}

// message is the webhook request body.
type message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}
