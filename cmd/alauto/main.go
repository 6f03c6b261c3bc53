// alauto drives a mobile game through adb: it watches the screen, recognises
// known markers and taps its way through combat, commissions, missions and
// dock retirement in an endless loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/alauto/migrations"

	"github.com/nerrad567/alauto/internal/adb"
	"github.com/nerrad567/alauto/internal/api"
	"github.com/nerrad567/alauto/internal/automation"
	"github.com/nerrad567/alauto/internal/infrastructure/config"
	"github.com/nerrad567/alauto/internal/infrastructure/database"
	"github.com/nerrad567/alauto/internal/infrastructure/influxdb"
	"github.com/nerrad567/alauto/internal/infrastructure/logging"
	"github.com/nerrad567/alauto/internal/infrastructure/mqtt"
	"github.com/nerrad567/alauto/internal/stats"
	"github.com/nerrad567/alauto/internal/touch"
	"github.com/nerrad567/alauto/internal/vision"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "alauto [--debug IMAGE SIMILARITY]",
		Short: "Screen-driven game automation over adb",
		Long: `alauto connects to an Android device or emulator through adb, captures the
screen, matches it against marker images and taps through the game's
routine chores until interrupted.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if debug {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := logging.New(cfg.Logging, version)

			if debug {
				similarity, err := parseSimilarity(args[1])
				if err != nil {
					return err
				}
				return runDebug(cmd.Context(), cfg, log, args[0], similarity, cmd.OutOrStdout())
			}
			return run(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", getConfigPath(), "path to the YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "find IMAGE on the current screen at SIMILARITY and exit")
	return cmd
}

// getConfigPath returns ALAUTO_CONFIG when set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("ALAUTO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func parseSimilarity(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 1 {
		return 0, fmt.Errorf("similarity must be a number in (0, 1], got %q", s)
	}
	return v, nil
}

// run wires the bot and blocks in the scheduler loop until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *logging.Logger) error { //nolint:gocognit,gocyclo // Linear startup sequence
	log.Info("starting alauto",
		"version", version,
		"commit", commit,
		"build_date", date,
		"service", cfg.Network.Service,
	)

	if cfg.ADB.Managed {
		server, err := startADBServer(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("stopping adb server")
			if stopErr := server.Stop(); stopErr != nil {
				log.Error("error stopping adb server", "error", stopErr)
			}
		}()
	}

	device, err := connectDevice(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info("Successfully connected to the service.")

	oracle := vision.NewOracle(device, visionConfig(cfg))
	oracle.SetLogger(log.With("component", "vision"))

	actuator := touch.NewActuator(device, cfg.Touch.SleepJitter)
	actuator.SetLogger(log.With("component", "touch"))

	st := stats.New()
	tasks, err := buildTasks(cfg, automation.Deps{
		Oracle:   oracle,
		Actuator: actuator,
		Stats:    st,
		Policy: automation.PollPolicy{
			MaxIdlePolls: cfg.Scheduler.MaxIdlePolls,
			Timeout:      cfg.Scheduler.MachineTimeout,
			PollInterval: cfg.Scheduler.PollInterval,
		},
		Logger: log.With("component", "automation"),
	})
	if err != nil {
		return err
	}

	checks := map[string]api.HealthChecker{"adb": device}
	recOpts := automation.RecorderOptions{
		QoS:    byte(cfg.MQTT.QoS), //nolint:gosec // Validated to 0..2
		Logger: log.With("component", "recorder"),
	}

	var journal *automation.SQLiteRepository
	if cfg.Database.Enabled {
		db, dbErr := openJournal(ctx, cfg, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		journal = automation.NewSQLiteRepository(db.DB)
		recOpts.Repository = journal
		checks["database"] = db
	}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log.With("component", "mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		recOpts.Publisher = mqttClient
		checks["mqtt"] = mqttClient
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		recOpts.Metrics = influxClient
		checks["influxdb"] = influxClient
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Stats:   st,
			Checks:  checks,
			Version: version,
		}
		if journal != nil {
			deps.Runs = journal
		}
		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		recOpts.Hub = server.Hub()
	}

	scheduler := automation.NewScheduler(oracle, actuator, st, tasks, automation.SchedulerConfig{
		IdleInterval:  cfg.Scheduler.IdleInterval,
		CombatBackoff: cfg.Scheduler.CombatBackoff,
		PollInterval:  cfg.Scheduler.PollInterval,
	})
	scheduler.SetLogger(log.With("component", "scheduler"))
	scheduler.SetRecorder(automation.NewRecorder(recOpts))

	log.Info("initialisation complete, entering main loop")
	err = scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("shutdown signal received, cleaning up")
		return nil
	}
	return err
}

func startADBServer(ctx context.Context, cfg *config.Config, log *logging.Logger) (*adb.Server, error) {
	server := adb.NewServer(adb.ServerConfig{
		Managed:            true,
		Binary:             cfg.ADB.Binary,
		Port:               cfg.ADB.Port,
		RestartOnFailure:   cfg.ADB.RestartOnFailure,
		RestartDelay:       cfg.ADB.RestartDelay(),
		MaxRestartAttempts: cfg.ADB.MaxRestartAttempts,
	})
	server.SetLogger(log.With("component", "adb-server"))

	log.Info("starting adb server", "address", server.Address())
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting adb server: %w", err)
	}
	return server, nil
}

// connectDevice attaches to the configured service. A failure here is fatal.
func connectDevice(ctx context.Context, cfg *config.Config, log *logging.Logger) (*adb.Client, error) {
	device := adb.NewClient(adb.Config{
		Binary:         cfg.ADB.Binary,
		Port:           cfg.ADB.Port,
		Service:        cfg.Network.Service,
		CommandTimeout: cfg.ADB.CommandTimeout,
	}, adb.ExecRunner{})
	device.SetLogger(log.With("component", "adb"))

	if err := device.Connect(ctx); err != nil {
		return nil, err
	}
	return device, nil
}

func visionConfig(cfg *config.Config) vision.Config {
	return vision.Config{
		AssetsDir:        cfg.Vision.AssetsDir,
		DefaultThreshold: cfg.Vision.DefaultThreshold,
		Scale:            cfg.Vision.Scale,
	}
}

// buildTasks creates the enabled tasks. Disabled tasks stay nil so the
// scheduler skips them.
func buildTasks(cfg *config.Config, deps automation.Deps) (automation.Tasks, error) {
	var tasks automation.Tasks

	if cfg.Combat.Enabled {
		combat, err := automation.NewCombat(deps, cfg.Combat.Map)
		if err != nil {
			return tasks, fmt.Errorf("combat: %w", err)
		}
		tasks.Combat = combat
	}
	if cfg.Commissions.Enabled {
		tasks.Commissions = automation.NewCommissions(deps, cfg.Commissions.StartNew)
	}
	if cfg.Missions.Enabled {
		tasks.Missions = automation.NewMissions(deps)
	}
	if cfg.Retirement.Enabled {
		retirement, err := automation.NewRetirement(deps, cfg.Combat.RetireCycle)
		if err != nil {
			return tasks, fmt.Errorf("retirement: %w", err)
		}
		tasks.Retirement = retirement
	}
	return tasks, nil
}

func openJournal(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("run journal ready", "path", cfg.Database.Path)
	return db, nil
}

// runDebug captures one frame and reports how well image matches it.
// image is a marker name from the assets directory or a path to a PNG.
func runDebug(ctx context.Context, cfg *config.Config, log *logging.Logger, image string, similarity float64, out io.Writer) error {
	device, err := connectDevice(ctx, cfg, log)
	if err != nil {
		return err
	}

	vcfg := visionConfig(cfg)
	marker := image
	if strings.HasSuffix(image, ".png") || strings.ContainsRune(image, filepath.Separator) {
		vcfg.AssetsDir = filepath.Dir(image)
		marker = strings.TrimSuffix(filepath.Base(image), ".png")
	}

	oracle := vision.NewOracle(device, vcfg)
	oracle.SetLogger(log.With("component", "vision"))
	if err := oracle.Refresh(ctx); err != nil {
		return fmt.Errorf("capturing screen: %w", err)
	}

	score, err := oracle.Score(marker)
	if err != nil {
		return fmt.Errorf("matching %s: %w", image, err)
	}

	verdict := "not found"
	if score >= similarity {
		verdict = "found"
	}
	fmt.Fprintf(out, "%s: similarity %.4f (threshold %.4f) %s\n", image, score, similarity, verdict)
	return nil
}
