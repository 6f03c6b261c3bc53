package automation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/alauto/internal/stats"
)

type memRepository struct {
	runs []TaskRun
	err  error
}

func (m *memRepository) Create(_ context.Context, run *TaskRun) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRepository) GetByID(_ context.Context, id string) (*TaskRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, ErrRunNotFound
}

func (m *memRepository) ListRecent(_ context.Context, limit int) ([]TaskRun, error) {
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	messages []published
	err      error
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.messages = append(p.messages, published{topic, payload, qos, retained})
	return p.err
}

type fakeHub struct {
	channels []string
	payloads []any
}

func (h *fakeHub) Broadcast(channel string, payload any) {
	h.channels = append(h.channels, channel)
	h.payloads = append(h.payloads, payload)
}

type fakeMetrics struct {
	runs   []string
	failed []bool
	stats  int
}

func (m *fakeMetrics) WriteTaskRun(task, signal string, _ time.Duration, failed bool, _ time.Time) {
	m.runs = append(m.runs, task+":"+signal)
	m.failed = append(m.failed, failed)
}

func (m *fakeMetrics) WriteStats(stats.Snapshot) { m.stats++ }

func TestRecorder_RecordRunFansOut(t *testing.T) {
	repo := &memRepository{}
	pub := &fakePublisher{}
	hub := &fakeHub{}
	metrics := &fakeMetrics{}
	r := NewRecorder(RecorderOptions{Repository: repo, Publisher: pub, Hub: hub, Metrics: metrics, QoS: 1})

	run := &TaskRun{Task: TaskRetirement, Signal: "progressed", Error: "boom", DurationMS: 1500}
	r.RecordRun(context.Background(), run)

	if run.ID == "" {
		t.Fatal("ID not assigned")
	}
	if len(repo.runs) != 1 || repo.runs[0].ID != run.ID {
		t.Errorf("journal = %+v", repo.runs)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.topic != "alauto/task/retirement" || msg.qos != 1 || msg.retained {
		t.Errorf("message = %s qos=%d retained=%v", msg.topic, msg.qos, msg.retained)
	}
	var decoded TaskRun
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if decoded.ID != run.ID || decoded.Error != "boom" {
		t.Errorf("decoded = %+v", decoded)
	}

	if len(hub.channels) != 1 || hub.channels[0] != ChannelTaskRun {
		t.Errorf("broadcasts = %v", hub.channels)
	}
	if len(metrics.runs) != 1 || metrics.runs[0] != "retirement:progressed" || !metrics.failed[0] {
		t.Errorf("metrics = %v failed=%v", metrics.runs, metrics.failed)
	}
}

func TestRecorder_KeepsExistingID(t *testing.T) {
	r := NewRecorder(RecorderOptions{})
	run := &TaskRun{ID: "fixed", Task: TaskCombat}
	r.RecordRun(context.Background(), run)
	if run.ID != "fixed" {
		t.Errorf("ID = %q, want fixed", run.ID)
	}
}

func TestRecorder_SinkFailuresAreSwallowed(t *testing.T) {
	repo := &memRepository{err: errors.New("disk full")}
	pub := &fakePublisher{err: errors.New("not connected")}
	hub := &fakeHub{}
	r := NewRecorder(RecorderOptions{Repository: repo, Publisher: pub, Hub: hub})

	r.RecordRun(context.Background(), &TaskRun{Task: TaskMissions})

	if len(hub.channels) != 1 {
		t.Error("hub skipped after earlier sink failures")
	}
}

func TestRecorder_RecordStatsRetained(t *testing.T) {
	pub := &fakePublisher{}
	metrics := &fakeMetrics{}
	r := NewRecorder(RecorderOptions{Publisher: pub, Metrics: metrics})

	r.RecordStats(stats.Snapshot{CombatDone: 7})

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.topic != "alauto/stats" || !msg.retained {
		t.Errorf("message = %s retained=%v", msg.topic, msg.retained)
	}
	var snap stats.Snapshot
	if err := json.Unmarshal(msg.payload, &snap); err != nil || snap.CombatDone != 7 {
		t.Errorf("payload = %s (%v)", msg.payload, err)
	}
	if metrics.stats != 1 {
		t.Errorf("metrics stats writes = %d, want 1", metrics.stats)
	}
}
