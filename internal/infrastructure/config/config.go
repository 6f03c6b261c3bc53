package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for alauto.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Network     NetworkConfig     `yaml:"network"`
	ADB         ADBConfig         `yaml:"adb"`
	Vision      VisionConfig      `yaml:"vision"`
	Touch       TouchConfig       `yaml:"touch"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Combat      CombatConfig      `yaml:"combat"`
	Commissions CommissionsConfig `yaml:"commissions"`
	Missions    MissionsConfig    `yaml:"missions"`
	Retirement  RetirementConfig  `yaml:"retirement"`
	Logging     LoggingConfig     `yaml:"logging"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	API         APIConfig         `yaml:"api"`
}

// NetworkConfig identifies the device the bot drives.
type NetworkConfig struct {
	// Service is either a "host:port" pair reached with `adb connect`
	// or a plain device serial for USB-attached devices.
	Service string `yaml:"service"`
}

// ADBConfig contains settings for the adb binary and the optional managed server.
type ADBConfig struct {
	// Binary is the path to the adb executable.
	Binary string `yaml:"binary"`

	// Port is the adb server port (adb -P).
	Port int `yaml:"port"`

	// Managed runs an adb server as a supervised child process instead of
	// relying on one started elsewhere.
	Managed bool `yaml:"managed"`

	RestartOnFailure    bool `yaml:"restart_on_failure"`
	RestartDelaySeconds int  `yaml:"restart_delay_seconds"`
	MaxRestartAttempts  int  `yaml:"max_restart_attempts"`

	// CommandTimeout bounds every individual adb invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// VisionConfig contains screen-matching settings.
type VisionConfig struct {
	// AssetsDir holds one PNG per marker, named <marker>.png.
	AssetsDir string `yaml:"assets_dir"`

	// DefaultThreshold is the similarity a marker must reach to count as visible.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// Scale is the downsampling factor of the coarse search pass.
	Scale int `yaml:"scale"`
}

// TouchConfig contains actuator settings.
type TouchConfig struct {
	// SleepJitter is added uniformly at random to every script sleep.
	SleepJitter time.Duration `yaml:"sleep_jitter"`
}

// SchedulerConfig contains the top-level loop tunables.
type SchedulerConfig struct {
	IdleInterval   time.Duration `yaml:"idle_interval"`
	CombatBackoff  time.Duration `yaml:"combat_backoff"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxIdlePolls   int           `yaml:"max_idle_polls"`
	MachineTimeout time.Duration `yaml:"machine_timeout"`
}

// CombatConfig contains combat task settings.
type CombatConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetireCycle is how many completed combats pass between retirement runs.
	RetireCycle int `yaml:"retire_cycle"`

	// Map is the stage marker to sortie into (e.g. "3-4").
	Map string `yaml:"map"`
}

// CommissionsConfig contains commission task settings.
type CommissionsConfig struct {
	Enabled  bool `yaml:"enabled"`
	StartNew bool `yaml:"start_new"`
}

// MissionsConfig contains mission task settings.
type MissionsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RetirementConfig contains retirement task settings.
type RetirementConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig contains SQLite run-journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ALAUTO_SECTION_KEY
// For example: ALAUTO_NETWORK_SERVICE, ALAUTO_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Service: "127.0.0.1:5555",
		},
		ADB: ADBConfig{
			Binary:              "adb",
			Port:                5037,
			RestartOnFailure:    true,
			RestartDelaySeconds: 5,
			MaxRestartAttempts:  10,
			CommandTimeout:      15 * time.Second,
		},
		Vision: VisionConfig{
			AssetsDir:        "assets/screen",
			DefaultThreshold: 0.95,
			Scale:            4,
		},
		Touch: TouchConfig{
			SleepJitter: 300 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			IdleInterval:   60 * time.Second,
			CombatBackoff:  time.Hour,
			PollInterval:   500 * time.Millisecond,
			MaxIdlePolls:   30,
			MachineTimeout: 10 * time.Minute,
		},
		Combat: CombatConfig{
			RetireCycle: 5,
			Map:         "3-4",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Path:        "./data/alauto.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "alauto",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8089,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ALAUTO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALAUTO_NETWORK_SERVICE"); v != "" {
		cfg.Network.Service = v
	}
	if v := os.Getenv("ALAUTO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ALAUTO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ALAUTO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ALAUTO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ALAUTO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("ALAUTO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Network.Service) == "" {
		errs = append(errs, "network.service is required")
	}
	if c.ADB.Binary == "" {
		errs = append(errs, "adb.binary is required")
	}
	if c.ADB.Port < 1 || c.ADB.Port > 65535 {
		errs = append(errs, "adb.port must be between 1 and 65535")
	}

	if c.Vision.DefaultThreshold <= 0 || c.Vision.DefaultThreshold > 1 {
		errs = append(errs, "vision.default_threshold must be in (0, 1]")
	}
	if c.Vision.Scale < 1 {
		errs = append(errs, "vision.scale must be at least 1")
	}

	// Retirement cadence is combat_done mod retire_cycle.
	if c.Combat.RetireCycle < 1 {
		errs = append(errs, "combat.retire_cycle must be at least 1")
	}

	if c.Scheduler.IdleInterval <= 0 {
		errs = append(errs, "scheduler.idle_interval must be positive")
	}
	if c.Scheduler.CombatBackoff <= 0 {
		errs = append(errs, "scheduler.combat_backoff must be positive")
	}
	if c.Scheduler.MaxIdlePolls < 1 {
		errs = append(errs, "scheduler.max_idle_polls must be at least 1")
	}
	if c.Scheduler.MachineTimeout <= 0 {
		errs = append(errs, "scheduler.machine_timeout must be positive")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}
	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RestartDelay returns the managed adb server restart delay as a Duration.
func (c ADBConfig) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelaySeconds) * time.Second
}

// ReadTimeout returns the read timeout as a Duration.
func (c APIConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (c APIConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (c APIConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
