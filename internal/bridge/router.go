// Package bridge drives the normalize → dedup → route → deliver pipeline
// and formats canonical events into webhook notifications.
package bridge

import (
	"meshbridge/internal/discord"
	"meshbridge/internal/mesh"
	logx "meshbridge/pkg/logx"
)

// Channel selects the delivery target for a routed event.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelPrimary
	ChannelTelemetry
)

func (c Channel) String() string {
	switch c {
	case ChannelPrimary:
		return "primary"
	case ChannelTelemetry:
		return "telemetry"
	default:
		return "none"
	}
}

// Router decides the output channel for an event and builds the
// channel-specific embed.
//
// hasTelemetry is consulted per message so a webhook added by a config
// reload takes effect without restarting the pipeline.
type Router struct {
	hasTelemetry func() bool
	log          logx.Logger
}

func NewRouter(hasTelemetry func() bool, log logx.Logger) *Router {
	if hasTelemetry == nil {
		hasTelemetry = func() bool { return false }
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{hasTelemetry: hasTelemetry, log: log}
}

// Route maps an event to its channel and notification. ChannelNone means
// the event is dropped (unroutable type, or telemetry without an endpoint).
func (r *Router) Route(ev *mesh.Event) (Channel, discord.Embed) {
	switch ev.Type {
	case mesh.TypeText:
		return ChannelPrimary, buildTextEmbed(ev)
	case mesh.TypePosition, mesh.TypeTelemetry, mesh.TypeNodeInfo:
		if !r.hasTelemetry() {
			r.log.Warn("telemetry webhook not configured; dropping event",
				logx.String("type", string(ev.Type)),
				logx.String("from", ev.FromID),
			)
			return ChannelNone, discord.Embed{}
		}
		return ChannelTelemetry, buildTelemetryEmbed(ev)
	default:
		r.log.Debug("ignored message type", logx.String("type", string(ev.Type)))
		return ChannelNone, discord.Embed{}
	}
}
