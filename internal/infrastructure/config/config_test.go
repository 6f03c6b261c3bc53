package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
network:
  service: "192.168.1.20:5555"
combat:
  enabled: true
  retire_cycle: 3
  map: "2-4"
commissions:
  enabled: true
missions:
  enabled: false
retirement:
  enabled: true
scheduler:
  idle_interval: 30s
  combat_backoff: 2h
vision:
  default_threshold: 0.9
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.Service != "192.168.1.20:5555" {
		t.Errorf("Network.Service = %q, want %q", cfg.Network.Service, "192.168.1.20:5555")
	}
	if !cfg.Combat.Enabled || cfg.Combat.RetireCycle != 3 || cfg.Combat.Map != "2-4" {
		t.Errorf("Combat = %+v, want enabled with retire_cycle 3 on 2-4", cfg.Combat)
	}
	if !cfg.Commissions.Enabled {
		t.Error("Commissions.Enabled = false, want true")
	}
	if cfg.Missions.Enabled {
		t.Error("Missions.Enabled = true, want false")
	}
	if cfg.Scheduler.IdleInterval != 30*time.Second {
		t.Errorf("Scheduler.IdleInterval = %v, want 30s", cfg.Scheduler.IdleInterval)
	}
	if cfg.Scheduler.CombatBackoff != 2*time.Hour {
		t.Errorf("Scheduler.CombatBackoff = %v, want 2h", cfg.Scheduler.CombatBackoff)
	}
	if cfg.Vision.DefaultThreshold != 0.9 {
		t.Errorf("Vision.DefaultThreshold = %v, want 0.9", cfg.Vision.DefaultThreshold)
	}

	// Untouched sections keep their defaults.
	if cfg.ADB.Port != 5037 {
		t.Errorf("ADB.Port = %d, want 5037", cfg.ADB.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
combat:
  retire_cycle: 0
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for retire_cycle 0, got nil")
	}
	if !strings.Contains(err.Error(), "combat.retire_cycle") {
		t.Errorf("error = %v, want mention of combat.retire_cycle", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing service",
			mutate:  func(c *Config) { c.Network.Service = " " },
			wantErr: true,
		},
		{
			name:    "zero retire cycle",
			mutate:  func(c *Config) { c.Combat.RetireCycle = 0 },
			wantErr: true,
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.Vision.DefaultThreshold = 1.2 },
			wantErr: true,
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.Vision.DefaultThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "invalid adb port",
			mutate:  func(c *Config) { c.ADB.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero idle interval",
			mutate:  func(c *Config) { c.Scheduler.IdleInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero max idle polls",
			mutate:  func(c *Config) { c.Scheduler.MaxIdlePolls = 0 },
			wantErr: true,
		},
		{
			name: "invalid QoS only checked when enabled",
			mutate: func(c *Config) {
				c.MQTT.QoS = 3
			},
			wantErr: false,
		},
		{
			name: "invalid QoS when enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
			},
			wantErr: true,
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "api enabled with invalid port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIConfig_Timeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.API.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("API.ReadTimeout() = %v, want 30", got)
	}
	if got := cfg.API.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("API.WriteTimeout() = %v, want 45", got)
	}
	if got := cfg.API.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("API.IdleTimeout() = %v, want 60", got)
	}
}

func TestADBConfig_RestartDelay(t *testing.T) {
	c := ADBConfig{RestartDelaySeconds: 7}
	if got := c.RestartDelay(); got != 7*time.Second {
		t.Errorf("RestartDelay() = %v, want 7s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("ALAUTO_NETWORK_SERVICE", "emulator-5554")
	t.Setenv("ALAUTO_LOG_LEVEL", "debug")
	t.Setenv("ALAUTO_DATABASE_PATH", "/custom/path.db")
	t.Setenv("ALAUTO_MQTT_HOST", "mqtt.example.com")
	t.Setenv("ALAUTO_MQTT_USERNAME", "testuser")
	t.Setenv("ALAUTO_MQTT_PASSWORD", "testpass")
	t.Setenv("ALAUTO_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Network.Service != "emulator-5554" {
		t.Errorf("Network.Service = %q, want %q", cfg.Network.Service, "emulator-5554")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Combat.RetireCycle != 5 {
		t.Errorf("Default Combat.RetireCycle = %d, want 5", cfg.Combat.RetireCycle)
	}
	if cfg.Scheduler.IdleInterval != 60*time.Second {
		t.Errorf("Default Scheduler.IdleInterval = %v, want 60s", cfg.Scheduler.IdleInterval)
	}
	if cfg.Scheduler.CombatBackoff != time.Hour {
		t.Errorf("Default Scheduler.CombatBackoff = %v, want 1h", cfg.Scheduler.CombatBackoff)
	}
	if cfg.Vision.DefaultThreshold != 0.95 {
		t.Errorf("Default Vision.DefaultThreshold = %v, want 0.95", cfg.Vision.DefaultThreshold)
	}
	if cfg.Combat.Enabled || cfg.Commissions.Enabled || cfg.Missions.Enabled || cfg.Retirement.Enabled {
		t.Error("Default should leave every task disabled")
	}
}
