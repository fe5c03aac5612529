package mesh

import (
	"bytes"
	"encoding/json"
	"strings"

	logx "meshbridge/pkg/logx"
)

// Topic segment marking the unencrypted JSON branch. Messages on other
// branches are protobuf/encrypted and structurally unparseable here.
const jsonMarker = "json"

// Normalizer parses raw (topic, bytes) pairs into canonical events.
//
// It owns no state of its own but updates the shared identity cache when a
// nodeinfo message passes through — deliberately before any dedup decision,
// so names propagate even from retransmitted packets.
type Normalizer struct {
	names *Names
	log   logx.Logger
}

func NewNormalizer(names *Names, log logx.Logger) *Normalizer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Normalizer{names: names, log: log}
}

// Eligible reports whether the topic belongs to the JSON branch.
func Eligible(topic string) bool {
	for _, seg := range strings.Split(topic, "/") {
		if seg == jsonMarker {
			return true
		}
	}
	return false
}

// channelFromTopic returns the segment immediately following the json
// marker, e.g. "msh/2/json/LongFast/!a1b2c3d4" -> "LongFast".
func channelFromTopic(topic string) string {
	segs := strings.Split(topic, "/")
	for i, seg := range segs {
		if seg == jsonMarker && i+1 < len(segs) {
			return segs[i+1]
		}
	}
	return ""
}

// Normalize parses one raw message. The second return is false when the
// message is rejected; rejections are logged here and never surfaced as
// errors.
func (n *Normalizer) Normalize(topic string, raw []byte) (*Event, bool) {
	if !Eligible(topic) {
		// Encrypted/binary branch; don't even attempt a parse.
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		n.log.Warn("unparseable message payload", logx.String("topic", topic), logx.Err(err))
		return nil, false
	}

	ev := &Event{Topic: topic, Type: TypeUnknown}
	if t, ok := data["type"].(string); ok && t != "" {
		ev.Type = Type(t)
	}

	// Origin: numeric 'from' (canonical) or a verbatim 'sender' fallback.
	switch {
	case hasKey(data, "from"):
		num, ok := data["from"].(json.Number)
		if !ok {
			n.log.Warn("message 'from' field is not numeric", logx.String("topic", topic))
			return nil, false
		}
		v, err := num.Int64()
		if err != nil || v < 0 {
			n.log.Warn("message 'from' field is not a device id", logx.String("topic", topic), logx.String("from", num.String()))
			return nil, false
		}
		ev.FromID = FormatNodeID(uint32(v))
	case hasKey(data, "sender"):
		s, _ := data["sender"].(string)
		if s == "" {
			n.log.Warn("message 'sender' field is empty", logx.String("topic", topic))
			return nil, false
		}
		ev.FromID = s
	default:
		n.log.Warn("message has no 'from' or 'sender' field", logx.String("topic", topic))
		return nil, false
	}

	// Capture the display name as known right now, not lazily at render time.
	ev.FromDisplay = n.names.Resolve(ev.FromID)

	ev.Channel = channelFromTopic(topic)

	if id, ok := ScalarField(data, "id"); ok {
		ev.ID = id
	}
	if ts, ok := NumberField(data, "timestamp"); ok {
		if f, ok := Float(ts); ok {
			ev.Timestamp = f
			ev.HasTimestamp = true
		}
	}
	if v, ok := NumberField(data, "rssi"); ok {
		ev.RSSI = v
	}
	if v, ok := NumberField(data, "snr"); ok {
		ev.SNR = v
	}
	if p, ok := data["payload"].(map[string]any); ok {
		ev.Payload = p
	}

	if ev.Type == TypeText {
		text, ok := "", false
		if ev.Payload != nil {
			text, ok = StringField(ev.Payload, "text")
		}
		if !ok {
			text, ok = StringField(data, "text")
		}
		if !ok {
			n.log.Debug("empty text message; skipping", logx.String("topic", topic))
			return nil, false
		}
		ev.Text = text
	}

	// Cache node names as soon as a nodeinfo packet is seen. This runs for
	// every inbound message, before the dedup gate, so a retransmitted
	// nodeinfo still refreshes the cache.
	if ev.Type == TypeNodeInfo && ev.Payload != nil {
		if user, ok := ObjectField(ev.Payload, "user"); ok {
			short, _ := StringField(user, "shortName", "shortname")
			long, _ := StringField(user, "longName", "longname")
			n.names.Update(ev.FromID, short, long)
		}
	}

	return ev, true
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}
