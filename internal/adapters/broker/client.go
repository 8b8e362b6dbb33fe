package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Attendance/internal/config"
	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client is the broker session: it owns the MQTT connection, decodes scans
// onto Events and publishes acknowledgements. Reconnects are left to paho.
type Client struct {
	cfg    config.BrokerConfig
	status core.StatusSink
	now    func() time.Time

	mqtt   mqtt.Client
	events chan core.CardEvent
	done   chan struct{}
}

func New(cfg config.BrokerConfig, status core.StatusSink) *Client {
	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = 64
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ReconnectPeriod <= 0 {
		cfg.ReconnectPeriod = 5 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		status: status,
		now:    time.Now,
		events: make(chan core.CardEvent, buf),
		done:   make(chan struct{}),
	}
	c.mqtt = mqtt.NewClient(c.options())
	return c
}

func ClientID(prefix string) string {
	return prefix + uuid.NewString()[:8]
}

func (c *Client) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.URL).
		SetClientID(ClientID(c.cfg.ClientIDPrefix)).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(c.cfg.ReconnectPeriod).
		SetMaxReconnectInterval(c.cfg.ReconnectPeriod).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetOrderMatters(true)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Error().Err(err).Str("module", "adapters.broker").Msg("connection lost")
		c.setStatus(domain.StatusDisconnected)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		log.Info().Str("module", "adapters.broker").Msg("reconnecting")
		c.setStatus(domain.StatusReconnecting)
		time.AfterFunc(c.cfg.ConnectTimeout, c.failIfNotConnected)
	})
	return opts
}

// Connect starts the connection. With connect-retry enabled paho keeps
// trying in the background and the connect token only completes on
// success, so a broker still unreachable after ConnectTimeout is reported
// as StatusError and Connect returns nil.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(domain.StatusConnecting)
	tok := c.mqtt.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tok.Done():
	case <-time.After(c.cfg.ConnectTimeout):
		log.Warn().Str("module", "adapters.broker").Str("url", c.cfg.URL).Msg("broker not reachable yet, retrying in background")
		c.failIfNotConnected()
		return nil
	}
	if err := tok.Error(); err != nil {
		c.setStatus(domain.StatusError)
		return err
	}
	return nil
}

// failIfNotConnected marks a connect or reconnect attempt that has not
// succeeded within ConnectTimeout.
func (c *Client) failIfNotConnected() {
	select {
	case <-c.done:
		return
	default:
	}
	if c.mqtt.IsConnectionOpen() {
		return
	}
	log.Error().Str("module", "adapters.broker").Str("url", c.cfg.URL).Msg("broker unreachable")
	c.setStatus(domain.StatusError)
}

func (c *Client) onConnect(cl mqtt.Client) {
	log.Info().Str("module", "adapters.broker").Str("url", c.cfg.URL).Msg("connected")
	c.setStatus(domain.StatusConnected)
	tok := cl.Subscribe(c.cfg.Topic, byte(c.cfg.QoS), func(_ mqtt.Client, m mqtt.Message) {
		c.handleMessage(m.Topic(), m.Payload())
	})
	go func() {
		tok.Wait()
		if err := tok.Error(); err != nil {
			log.Error().Err(err).Str("module", "adapters.broker").Str("topic", c.cfg.Topic).Msg("subscribe failed")
			c.setStatus(domain.StatusError)
			return
		}
		log.Info().Str("module", "adapters.broker").Str("topic", c.cfg.Topic).Msg("subscribed")
	}()
}

// handleMessage runs on paho's router goroutine, once per message.
func (c *Client) handleMessage(topic string, payload []byte) {
	id, err := DecodeCardID(payload, c.cfg.CardField)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.broker").Str("topic", topic).Int("bytes", len(payload)).Msg("discarding event")
		return
	}
	log.Debug().Str("module", "adapters.broker").Str("topic", topic).Str("card", string(id)).Msg("card event")
	ev := core.CardEvent{CardID: id, Topic: topic, ReceivedAt: c.now()}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Events is read by exactly one dispatcher.
func (c *Client) Events() <-chan core.CardEvent { return c.events }

// Acknowledge publishes ack without waiting for the broker.
// It is a no-op when no ack topic is configured.
func (c *Client) Acknowledge(ack domain.Ack) {
	if c.cfg.AckTopic == "" {
		return
	}
	b, err := json.Marshal(ack)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.broker").Msg("ack marshal")
		return
	}
	if !c.mqtt.IsConnectionOpen() {
		log.Warn().Str("module", "adapters.broker").Msg("ack dropped, not connected")
		return
	}
	c.mqtt.Publish(c.cfg.AckTopic, byte(c.cfg.QoS), false, b)
}

// Close disconnects and releases a blocked delivery. Events is not closed
// because paho may still be delivering.
func (c *Client) Close() {
	select {
	case <-c.done:
		return
	default:
	}
	close(c.done)
	c.mqtt.Disconnect(250)
	c.setStatus(domain.StatusDisconnected)
	log.Info().Str("module", "adapters.broker").Msg("disconnected")
}

func (c *Client) setStatus(s domain.ConnStatus) {
	if c.status != nil {
		c.status.SetStatus(s)
	}
}
