package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/freeeve/civ-balance/api/internal/model"
)

type mockRunRepo struct {
	mu   sync.Mutex
	runs map[string]model.Run
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[string]model.Run)}
}

func (m *mockRunRepo) Save(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *mockRunRepo) FindByID(_ context.Context, id string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockRunRepo) ListRecent(_ context.Context, limit int) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Run
	for _, r := range m.runs {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

type mockCache struct {
	mu        sync.Mutex
	snapshot  json.RawMessage
	insights  map[string]json.RawMessage
	published []json.RawMessage
}

func newMockCache() *mockCache {
	return &mockCache{insights: make(map[string]json.RawMessage)}
}

func (m *mockCache) SetSnapshot(_ context.Context, snapshot json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
	return nil
}

func (m *mockCache) SetInsights(_ context.Context, runID string, report json.RawMessage, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[runID] = report
	return nil
}

func (m *mockCache) GetInsights(_ context.Context, runID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insights[runID], nil
}

func (m *mockCache) PublishEvent(_ context.Context, event json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
	return nil
}

func (m *mockCache) publishedTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.published))
	for _, raw := range m.published {
		var e struct {
			Type string `json:"type"`
		}
		json.Unmarshal(raw, &e)
		out = append(out, e.Type)
	}
	return out
}

func (m *mockCache) cachedStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var snap model.Snapshot
	json.Unmarshal(m.snapshot, &snap)
	return snap.Status
}

// slowCache delays snapshot writes like a congested Redis.
type slowCache struct {
	*mockCache
	delay   time.Duration
	writing chan struct{}
	once    sync.Once
}

func newSlowCache(delay time.Duration) *slowCache {
	return &slowCache{mockCache: newMockCache(), delay: delay, writing: make(chan struct{})}
}

func (c *slowCache) SetSnapshot(ctx context.Context, snapshot json.RawMessage) error {
	c.once.Do(func() { close(c.writing) })
	time.Sleep(c.delay)
	return c.mockCache.SetSnapshot(ctx, snapshot)
}

type recordedEvent struct {
	runID     string
	eventType string
}

type mockBroadcaster struct {
	mu      sync.Mutex
	events  []recordedEvent
	panicOn string
}

func (m *mockBroadcaster) BroadcastEvent(runID, eventType string, _ any) {
	m.mu.Lock()
	m.events = append(m.events, recordedEvent{runID: runID, eventType: eventType})
	m.mu.Unlock()
	if m.panicOn != "" && eventType == m.panicOn {
		panic("broadcast failed")
	}
}

func (m *mockBroadcaster) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.eventType
	}
	return out
}
