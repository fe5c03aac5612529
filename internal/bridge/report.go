package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"meshbridge/internal/discord"
	"meshbridge/internal/mesh"
	logx "meshbridge/pkg/logx"
)

// ReportConfig schedules the periodic status digest. An empty Schedule
// disables it.
type ReportConfig struct {
	Schedule string
	Timezone string
}

// Reporter posts a status digest to the primary webhook on a cron schedule.
// Apply and Stop may be called from different goroutines (config reload vs
// shutdown).
type Reporter struct {
	svc     *Service
	names   *mesh.Names
	sender  Sender
	log     logx.Logger
	started time.Time

	parser cron.Parser

	mu sync.Mutex
	c  *cron.Cron
}

func NewReporter(svc *Service, names *mesh.Names, sender Sender, log logx.Logger) *Reporter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reporter{
		svc:     svc,
		names:   names,
		sender:  sender,
		log:     log,
		started: time.Now(),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Apply (re)schedules the digest. Safe to call on config reload; a running
// schedule is stopped before the new one starts.
func (r *Reporter) Apply(cfg ReportConfig) error {
	r.Stop()
	if cfg.Schedule == "" {
		return nil
	}
	if _, err := r.parser.Parse(cfg.Schedule); err != nil {
		return fmt.Errorf("report.schedule: %w", err)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("report.timezone: %w", err)
		}
		loc = l
	}

	c := cron.New(cron.WithParser(r.parser), cron.WithLocation(loc))
	_, err := c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.sender.Send(ctx, r.buildDigest()); err != nil {
			r.log.Warn("status digest delivery failed", logx.Err(err))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	r.mu.Lock()
	r.c = c
	r.mu.Unlock()
	r.log.Info("status digest scheduled", logx.String("schedule", cfg.Schedule))
	return nil
}

func (r *Reporter) Stop() {
	r.mu.Lock()
	c := r.c
	r.c = nil
	r.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

func (r *Reporter) buildDigest() discord.Embed {
	snap := r.svc.Stats().Snapshot()
	uptime := time.Since(r.started).Round(time.Second)

	e := discord.Embed{Title: "📊 Bridge Status", Color: discord.ColorGeneric}
	e.AddField("Uptime", uptime.String(), true)
	e.AddField("Known Nodes", fmt.Sprintf("%d", r.names.Len()), true)
	e.AddField("Received", fmt.Sprintf("%d", snap.Received), true)
	e.AddField("Delivered", fmt.Sprintf("%d", snap.Delivered), true)
	e.AddField("Duplicates", fmt.Sprintf("%d", snap.Duplicates), true)
	e.AddField("Rejected", fmt.Sprintf("%d", snap.Rejected), true)
	e.AddField("Ignored", fmt.Sprintf("%d", snap.Ignored), true)
	e.AddField("Delivery Failures", fmt.Sprintf("%d", snap.Failures), true)
	e.SetFooter("Time: " + time.Now().Format(footerTimeFormat))
	return e
}
