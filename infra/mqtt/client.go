package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/vbattery/core/battery"
	"github.com/kilianp07/vbattery/infra/logger"
)

// ErrTimeout is returned when the broker does not complete an operation in time.
var ErrTimeout = errors.New("mqtt operation timed out")

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// StateMessage is the JSON document published after each run.
type StateMessage struct {
	RunID            string    `json:"run_id"`
	StockWh          float64   `json:"stock_wh"`
	DischargeWh      float64   `json:"discharge_wh"`
	GridDrawWh       float64   `json:"grid_draw_wh"`
	InjectionIndex   float64   `json:"injection_index"`
	ConsumptionIndex float64   `json:"consumption_index"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	Timestamp        int64     `json:"timestamp"`
}

// NewStateMessage builds the payload for the final state of a run.
func NewStateMessage(runID string, s battery.State, start, end time.Time) StateMessage {
	return StateMessage{
		RunID:            runID,
		StockWh:          s.Stock,
		DischargeWh:      s.Discharge,
		GridDrawWh:       s.GridDraw,
		InjectionIndex:   s.InjectionIndex,
		ConsumptionIndex: s.ConsumptionIndex,
		PeriodStart:      start,
		PeriodEnd:        end,
		Timestamp:        time.Now().UnixMilli(),
	}
}

// StatePublisher publishes the battery state to a single topic.
type StatePublisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// NewStatePublisher connects to the MQTT broker.
func NewStatePublisher(cfg Config) (*StatePublisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if err := wait(c.Connect(), cfg.Timeout()); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	return &StatePublisher{
		cli:        c,
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		timeout:    cfg.Timeout(),
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(cfg.Timeout())
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// Publish sends the message, retrying with exponential backoff.
func (p *StatePublisher) Publish(ctx context.Context, msg StateMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		publishErr = wait(p.cli.Publish(p.topic, p.qos, p.retain, payload), p.timeout)
		if publishErr == nil {
			p.logger.Infof("published state of run %s to %s", msg.RunID, p.topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return publishErr
}

// Close gracefully closes the MQTT connection.
func (p *StatePublisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

func wait(t paho.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return t.Error()
}
