// Package mqtt subscribes to the broker and feeds raw messages downstream.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	logx "meshbridge/pkg/logx"
)

// Config describes the broker connection.
type Config struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
	Username string
	Password string
}

// Handler receives every raw message on the subscribed topic filter.
type Handler func(topic string, payload []byte)

// Client owns the broker connection and the single subscription.
//
// Reconnects are delegated to paho's auto-reconnect; the subscription is
// re-established from the OnConnect hook so it survives broker restarts.
type Client struct {
	cfg     Config
	handler Handler
	log     logx.Logger

	c paho.Client
}

func NewClient(cfg Config, handler Handler, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, handler: handler, log: log}
}

// Start connects and subscribes. It blocks until the initial connect
// succeeds or ctx is done; reconnects after that happen in the background.
func (c *Client) Start(ctx context.Context) error {
	uri := fmt.Sprintf("tcp://%s:%d", c.cfg.Broker, c.cfg.Port)

	opts := paho.NewClientOptions().
		AddBroker(uri).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetConnectRetry(false).
		SetOrderMatters(false)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.SetOnConnectHandler(func(cl paho.Client) {
		c.log.Info("broker connected",
			logx.String("broker", uri),
			logx.String("topic", c.cfg.Topic),
		)
		tok := cl.Subscribe(c.cfg.Topic, 0, func(_ paho.Client, m paho.Message) {
			c.handler(m.Topic(), m.Payload())
		})
		go func() {
			if tok.Wait() && tok.Error() != nil {
				c.log.Error("broker subscribe failed", logx.Err(tok.Error()))
			}
		}()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("broker connection lost; reconnecting", logx.Err(err))
	})

	c.c = paho.NewClient(opts)

	tok := c.c.Connect()
	select {
	case <-ctx.Done():
		c.c.Disconnect(0)
		return ctx.Err()
	case <-tok.Done():
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", uri, err)
	}
	return nil
}

// Stop disconnects, allowing in-flight work a short grace period.
func (c *Client) Stop() {
	if c.c != nil && c.c.IsConnected() {
		c.c.Disconnect(250)
	}
}
