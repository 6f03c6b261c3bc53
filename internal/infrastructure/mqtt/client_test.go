package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/alauto/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "alauto-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SystemStatus", Topics{}.SystemStatus(), "alauto/system/status"},
		{"Stats", Topics{}.Stats(), "alauto/stats"},
		{"Task", Topics{}.Task("retirement"), "alauto/task/retirement"},
		{"AllTasks", Topics{}.AllTasks(), "alauto/task/+"},
		{"AllTopics", Topics{}.AllTopics(), "alauto/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.MQTTConfig)
		wantURL    string
		wantUser   string
		wantTLSSet bool
	}{
		{
			name:    "plain tcp",
			mutate:  func(*config.MQTTConfig) {},
			wantURL: "tcp://127.0.0.1:1883",
		},
		{
			name: "tls with credentials",
			mutate: func(c *config.MQTTConfig) {
				c.Broker.TLS = true
				c.Broker.Port = 8883
				c.Auth.Username = "bot"
				c.Auth.Password = "secret"
			},
			wantURL:    "ssl://127.0.0.1:8883",
			wantUser:   "bot",
			wantTLSSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			opts := buildClientOptions(cfg)
			if len(opts.Servers) != 1 || opts.Servers[0].String() != tt.wantURL {
				t.Errorf("Servers = %v, want %s", opts.Servers, tt.wantURL)
			}
			if opts.ClientID != "alauto-test" {
				t.Errorf("ClientID = %q", opts.ClientID)
			}
			if opts.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", opts.Username, tt.wantUser)
			}
			if (opts.TLSConfig != nil) != tt.wantTLSSet {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.wantTLSSet)
			}
			if !opts.AutoReconnect || opts.MaxReconnectInterval != 5*time.Second {
				t.Errorf("reconnect = %v/%v", opts.AutoReconnect, opts.MaxReconnectInterval)
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, "alauto-test")

	if !opts.WillEnabled || opts.WillTopic != "alauto/system/status" {
		t.Fatalf("will = %v %q", opts.WillEnabled, opts.WillTopic)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will retained=%v qos=%d, want true/1", opts.WillRetained, opts.WillQos)
	}

	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" || msg.ClientID != "alauto-test" {
		t.Errorf("will payload = %+v", msg)
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("bot"), "online", ""},
		{"offline", buildOfflinePayload("bot"), "offline", "graceful_shutdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg statusMessage
			if err := json.Unmarshal([]byte(tt.payload), &msg); err != nil {
				t.Fatalf("payload not JSON: %v", err)
			}
			if msg.Status != tt.wantStatus || msg.Reason != tt.wantReason {
				t.Errorf("payload = %+v", msg)
			}
			if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
				t.Errorf("timestamp %q: %v", msg.Timestamp, err)
			}
			if tt.wantReason == "" && strings.Contains(tt.payload, "reason") {
				t.Errorf("payload %s should omit reason", tt.payload)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "alauto/stats", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "alauto/stats", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "alauto/stats", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() = true for new client")
	}
}

func TestHealthCheck(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

type recordingLogger struct {
	infos, warns []string
}

func (l *recordingLogger) Info(msg string, _ ...any) { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }

func TestHandleDisconnectLogs(t *testing.T) {
	client := &Client{connected: true}
	logger := &recordingLogger{}
	client.SetLogger(logger)

	client.handleDisconnect(errors.New("broker went away"))

	if client.IsConnected() {
		t.Error("still connected after disconnect")
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one", logger.warns)
	}
}
