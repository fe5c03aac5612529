package bridge

import (
	"context"
	"time"

	"meshbridge/internal/archive"
	"meshbridge/internal/discord"
	"meshbridge/internal/mesh"
	logx "meshbridge/pkg/logx"
)

// Sender delivers one embed to a webhook.
type Sender interface {
	Send(ctx context.Context, e discord.Embed) error
}

// Service runs the full per-message pipeline:
// normalize -> dedup -> route -> deliver -> archive.
type Service struct {
	norm      *mesh.Normalizer
	seen      *mesh.SeenIDs
	router    *Router
	primary   Sender
	telemetry Sender
	store     archive.Store
	stats     *Stats
	log       logx.Logger
}

// NewService wires the pipeline. telemetry and store may be nil.
func NewService(norm *mesh.Normalizer, seen *mesh.SeenIDs, router *Router, primary, telemetry Sender, store archive.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		norm:      norm,
		seen:      seen,
		router:    router,
		primary:   primary,
		telemetry: telemetry,
		store:     store,
		stats:     &Stats{},
		log:       log,
	}
}

func (s *Service) Stats() *Stats { return s.stats }

// Handle processes one raw broker message. Delivery failures are logged and
// counted but never propagated: a bad message or a webhook outage must not
// take down the subscription.
func (s *Service) Handle(ctx context.Context, topic string, payload []byte) {
	s.stats.Received.Add(1)

	ev, ok := s.norm.Normalize(topic, payload)
	if !ok {
		s.stats.Rejected.Add(1)
		return
	}

	if !s.seen.Admit(ev.ID) {
		s.stats.Duplicates.Add(1)
		s.log.Debug("duplicate message suppressed",
			logx.String("id", ev.ID),
			logx.String("from", ev.FromID),
		)
		return
	}

	ch, embed := s.router.Route(ev)
	if ch == ChannelNone {
		s.stats.Ignored.Add(1)
		return
	}

	sender := s.primary
	if ch == ChannelTelemetry {
		sender = s.telemetry
	}
	if err := sender.Send(ctx, embed); err != nil {
		s.stats.Failures.Add(1)
		s.log.Error("webhook delivery failed",
			logx.String("channel", ch.String()),
			logx.String("type", string(ev.Type)),
			logx.String("from", ev.FromID),
			logx.Err(err),
		)
		return
	}
	s.stats.Delivered.Add(1)
	s.log.Info("message delivered",
		logx.String("channel", ch.String()),
		logx.String("type", string(ev.Type)),
		logx.String("from", ev.FromDisplay),
	)

	s.archiveDelivered(ctx, ev)
}

func (s *Service) archiveDelivered(ctx context.Context, ev *mesh.Event) {
	if s.store == nil {
		return
	}
	err := s.store.AppendMessage(ctx, archive.Entry{
		At:       time.Now(),
		Topic:    ev.Topic,
		Type:     string(ev.Type),
		FromID:   ev.FromID,
		FromName: ev.FromDisplay,
		Channel:  ev.Channel,
		Text:     ev.Text,
	})
	if err != nil {
		s.log.Warn("archive append failed", logx.Err(err))
	}
}
