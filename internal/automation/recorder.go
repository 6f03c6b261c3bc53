package automation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/alauto/internal/infrastructure/mqtt"
	"github.com/nerrad567/alauto/internal/stats"
)

// WebSocket channels the recorder broadcasts on.
const (
	ChannelTaskRun = "task.run"
	ChannelStats   = "stats"
)

// Publisher publishes MQTT messages. Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub broadcasts events to WebSocket subscribers. Satisfied by *api.Hub.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Metrics writes time-series points. Satisfied by *influxdb.Client.
type Metrics interface {
	WriteTaskRun(task, signal string, duration time.Duration, failed bool, at time.Time)
	WriteStats(snap stats.Snapshot)
}

// RecorderOptions wires the recorder's sinks. Every sink is optional.
type RecorderOptions struct {
	Repository Repository
	Publisher  Publisher
	Hub        WSHub
	Metrics    Metrics
	QoS        byte
	Logger     Logger
}

// Recorder fans task runs and statistics out to the journal and telemetry.
// Sink failures are logged and never reach the control loop.
type Recorder struct {
	repo      Repository
	publisher Publisher
	hub       WSHub
	metrics   Metrics
	qos       byte
	topics    mqtt.Topics
	logger    Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	r := &Recorder{
		repo:      opts.Repository,
		publisher: opts.Publisher,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		qos:       opts.QoS,
		logger:    opts.Logger,
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	return r
}

// RecordRun stores and publishes one task run. An empty ID is filled in.
func (r *Recorder) RecordRun(ctx context.Context, run *TaskRun) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if r.repo != nil {
		if err := r.repo.Create(ctx, run); err != nil {
			r.logger.Warn("failed to journal task run", "task", run.Task, "error", err)
		}
	}

	if r.publisher != nil {
		r.publish(r.topics.Task(string(run.Task)), run, false)
	}

	if r.hub != nil {
		r.hub.Broadcast(ChannelTaskRun, run)
	}

	if r.metrics != nil {
		r.metrics.WriteTaskRun(string(run.Task), run.Signal,
			time.Duration(run.DurationMS)*time.Millisecond, run.Failed(), run.FinishedAt)
	}
}

// RecordStats publishes a statistics snapshot. The MQTT copy is retained so
// new subscribers see the latest counters.
func (r *Recorder) RecordStats(snap stats.Snapshot) {
	if r.publisher != nil {
		r.publish(r.topics.Stats(), snap, true)
	}
	if r.hub != nil {
		r.hub.Broadcast(ChannelStats, snap)
	}
	if r.metrics != nil {
		r.metrics.WriteStats(snap)
	}
}

func (r *Recorder) publish(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("failed to encode telemetry", "topic", topic, "error", err)
		return
	}
	if err := r.publisher.Publish(topic, payload, r.qos, retained); err != nil {
		r.logger.Debug("telemetry publish failed", "topic", topic, "error", err)
	}
}
