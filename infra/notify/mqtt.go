package notify

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/internal/eventbus"
)

// Config defines the connection parameters for the MQTT notifier.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker" validate:"required_if=Enabled true"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Topic      string `json:"topic"`
	QoS        byte   `json:"qos"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
}

// SetDefaults fills in values for unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "busched-notifier"
	}
	if c.Topic == "" {
		c.Topic = "schedule/edits"
	}
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

// MQTTNotifier publishes committed edit events to an MQTT topic so external
// consumers (dashboards, sync jobs) can react without polling the store.
type MQTTNotifier struct {
	cli   pahoClient
	topic string
	qos   byte
	log   logger.Logger
	done  chan struct{}
}

// NewMQTTNotifier connects to the broker described by cfg.
func NewMQTTNotifier(cfg Config) (*MQTTNotifier, error) {
	cfg.SetDefaults()
	opts, err := newClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-notifier")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTNotifier{cli: c, topic: cfg.Topic, qos: cfg.QoS, log: log, done: make(chan struct{})}, nil
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
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Publish sends one edit event to the configured topic.
func (n *MQTTNotifier) Publish(ev eventbus.EditEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := n.cli.Publish(n.topic, n.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		n.log.Errorf("publish failed: %v", err)
		return err
	}
	return nil
}

// Run forwards bus events to the broker until the subscription or the
// notifier closes.
func (n *MQTTNotifier) Run(sub <-chan eventbus.EditEvent) {
	go func() {
		for {
			select {
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = n.Publish(ev)
			case <-n.done:
				return
			}
		}
	}()
}

// Close stops forwarding and disconnects from the broker.
func (n *MQTTNotifier) Close() {
	select {
	case <-n.done:
	default:
		close(n.done)
	}
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
	// Give in-flight publishes a moment to drain.
	time.Sleep(10 * time.Millisecond)
}
