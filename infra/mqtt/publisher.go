// Package mqtt bridges planner events onto an MQTT broker so depot
// dashboards and supervisor consoles receive plan updates without polling.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/events"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/logger"
	"github.com/ObsyanX/kmrl-prototype1-sub001/internal/eventbus"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	RunTopic   string `json:"run_topic"`
	SwapTopic  string `json:"swap_topic"`
	QoS        byte   `json:"qos"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PlanPublisher publishes planner events to MQTT topics.
type PlanPublisher struct {
	cli       pahoClient
	runTopic  string
	swapTopic string
	qos       byte
	log       logger.Logger
	done      chan struct{}
}

// NewPlanPublisher connects to the broker described by cfg.
func NewPlanPublisher(cfg Config) (*PlanPublisher, error) {
	opts, err := newClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	runTopic := cfg.RunTopic
	if runTopic == "" {
		runTopic = "induction/runs"
	}
	swapTopic := cfg.SwapTopic
	if swapTopic == "" {
		swapTopic = "induction/swaps"
	}
	return &PlanPublisher{
		cli:       c,
		runTopic:  runTopic,
		swapTopic: swapTopic,
		qos:       cfg.QoS,
		log:       log,
		done:      make(chan struct{}),
	}, nil
}

func newClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.loadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func (c Config) loadTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		pem, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse ca bundle %s", c.CABundle)
		}
		tlsCfg.RootCAs = pool
	}
	if c.ClientCert != "" && c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// PublishRun sends a run-completed payload.
func (p *PlanPublisher) PublishRun(ev events.RunCompletedEvent) error {
	return p.publish(p.runTopic, ev)
}

// PublishSwap sends a swap-executed payload.
func (p *PlanPublisher) PublishSwap(ev events.SwapExecutedEvent) error {
	return p.publish(p.swapTopic, ev)
}

func (p *PlanPublisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := p.cli.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Bridge forwards planner events from the bus until the bus closes or
// Close is called. Run it in its own goroutine. Only the run and swap
// event types are bridged; other bus traffic never reaches the broker.
func (p *PlanPublisher) Bridge(bus eventbus.EventBus) {
	runs, cancelRuns := eventbus.SubscribeTyped[events.RunCompletedEvent](bus)
	swaps, cancelSwaps := eventbus.SubscribeTyped[events.SwapExecutedEvent](bus)
	defer cancelRuns()
	defer cancelSwaps()
	for runs != nil || swaps != nil {
		select {
		case <-p.done:
			return
		case ev, ok := <-runs:
			if !ok {
				runs = nil
				continue
			}
			if err := p.PublishRun(ev); err != nil {
				p.log.Errorf("publish run event: %v", err)
			}
		case ev, ok := <-swaps:
			if !ok {
				swaps = nil
				continue
			}
			if err := p.PublishSwap(ev); err != nil {
				p.log.Errorf("publish swap event: %v", err)
			}
		}
	}
}

// Close stops the bridge and disconnects from the broker.
func (p *PlanPublisher) Close() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	p.cli.Disconnect(250)
}
