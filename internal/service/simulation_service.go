package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/civ-balance/api/internal/logger"
	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/internal/repository"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

var (
	ErrNotRunning      = errors.New("no simulation is running")
	ErrNoResults       = errors.New("no simulation has finished yet")
	ErrInsightsPending = errors.New("insights refresh when the simulation completes")
	ErrArchiveDisabled = errors.New("run archive is not configured")
	ErrRunNotFound     = errors.New("run not found")
)

const (
	insightsTTL         = 7 * 24 * time.Hour
	archiveWriteTimeout = 5 * time.Second
)

// SimulationService drives one simulation at a time over a shared civilization
// registry and publishes its progress.
type SimulationService struct {
	runs        repository.RunRepository // nil = archive disabled
	cache       repository.ProgressCache // nil = cache disabled
	broadcaster Broadcaster
	speed       string

	mu        sync.RWMutex
	registry  *balance.Registry
	running   bool
	runID     string
	status    string
	message   string
	runSpeed  string
	progress  *balance.Progress
	insights  *balance.InsightReport
	updatedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// storeMu guards the cache write queue, which is drained outside s.mu.
	storeMu   sync.Mutex
	storeIdle *sync.Cond
	pending   []*publication
	draining  bool
}

// NewSimulationService creates a SimulationService. runs and cache may be nil;
// defaultSpeed applies when a request names no speed.
func NewSimulationService(reg *balance.Registry, runs repository.RunRepository, cache repository.ProgressCache, broadcaster Broadcaster, defaultSpeed string) *SimulationService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	s := &SimulationService{
		runs:        runs,
		cache:       cache,
		broadcaster: broadcaster,
		speed:       defaultSpeed,
		registry:    reg,
		status:      model.RunIdle,
		message:     "Ready. Configure parameters and hit run.",
		updatedAt:   time.Now(),
	}
	s.storeIdle = sync.NewCond(&s.storeMu)
	return s
}

// Start launches a run in the background and returns its ID. If a run is
// already in progress nothing happens and started is false.
func (s *SimulationService) Start(req StartRequest) (runID string, started bool) {
	s.mu.Lock()
	if s.running {
		runID = s.runID
		s.mu.Unlock()
		return runID, false
	}

	speedName := req.Speed
	if speedName == "" {
		speedName = s.speed
	}
	speed := ParseSpeed(speedName)

	cfg := balance.Config{
		PlayerCount:   req.PlayerCount,
		MatchCount:    req.MatchCount,
		KFactor:       req.KFactor,
		Mode:          balance.ParseMode(req.MatchmakingMode),
		ProgressEvery: speed.BatchSize,
		Seed:          req.Seed,
	}
	sim := balance.New(s.registry, cfg)
	cfg = sim.Config()

	runID = logger.NewID()
	ctx, cancel := context.WithCancel(logger.WithRunID(context.Background(), runID))

	initial := model.RoundProgress(sim.Progress())
	s.running = true
	s.runID = runID
	s.status = model.RunRunning
	s.runSpeed = speed.Name
	s.progress = &initial
	s.insights = nil
	s.cancel = cancel
	s.done = make(chan struct{})
	s.message = fmt.Sprintf("Generating %s players and scheduling %s matches.",
		balance.FormatCount(cfg.PlayerCount), balance.FormatCount(cfg.MatchCount))
	s.updatedAt = time.Now()

	l := logger.FromContext(ctx)
	l.Info().
		Str("profile", sim.Registry().Profile()).
		Str("mode", string(cfg.Mode)).
		Int("players", cfg.PlayerCount).
		Int("matches", cfg.MatchCount).
		Float64("kFactor", cfg.KFactor).
		Float64("spread", sim.Registry().Spread()).
		Str("speed", speed.Name).
		Msg("Simulation started")

	s.publishLocked(ctx, EventSimulationStarted)
	go s.run(ctx, sim, speed, s.done)
	s.mu.Unlock()

	go s.flushStore(false)
	return runID, true
}

func (s *SimulationService) run(ctx context.Context, sim *balance.Simulation, speed Speed, done chan struct{}) {
	defer close(done)
	l := logger.FromContext(ctx)
	startedAt := time.Now()

	cfg := sim.Config()
	milestoneEvery := max(200, int(math.Round(float64(cfg.MatchCount)/10)))
	lastMilestone := 0

	hook := func(p balance.Progress) error {
		msg := ""
		if m := p.MatchesCompleted / milestoneEvery; m > lastMilestone && !p.Done {
			lastMilestone = m
			msg = fmt.Sprintf("%.0f%% complete, civ win rates are converging.", p.Ratio()*100)
		}
		s.recordProgress(ctx, p, msg)
		if speed.Delay > 0 && !p.Done {
			select {
			case <-ctx.Done():
			case <-time.After(speed.Delay):
			}
		}
		return nil
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("simulation panicked: %v", r)
			}
		}()
		err = sim.Run(ctx, hook)
	}()

	s.finish(ctx, l, sim, startedAt, err)
}

func (s *SimulationService) recordProgress(ctx context.Context, p balance.Progress, msg string) {
	rounded := model.RoundProgress(p)
	s.mu.Lock()
	s.progress = &rounded
	if msg != "" {
		s.message = msg
	}
	s.updatedAt = time.Now()
	s.publishLocked(ctx, EventSimulationProgress)
	s.mu.Unlock()

	s.flushStore(false)
}

// finish records the outcome of a run. A failed run keeps whatever statistics
// it accumulated.
func (s *SimulationService) finish(ctx context.Context, l *zerolog.Logger, sim *balance.Simulation, startedAt time.Time, runErr error) {
	final := sim.Progress()
	report := sim.Insights()

	run := &model.Run{
		Profile:          sim.Registry().Profile(),
		Mode:             string(sim.Config().Mode),
		PlayerCount:      sim.Config().PlayerCount,
		MatchCount:       sim.Config().MatchCount,
		MatchesCompleted: final.MatchesCompleted,
		KFactor:          sim.Config().KFactor,
		Spread:           sim.Registry().Spread(),
		Seed:             sim.Config().Seed,
		MeanRating:       final.MeanRating,
		AverageStrength:  final.AverageStrength,
		Civilizations:    model.CivResultsFrom(final),
		StartedAt:        startedAt.UTC(),
		FinishedAt:       time.Now().UTC(),
	}

	// The run context may already be cancelled; storage writes get their own deadline.
	storeCtx, cancel := context.WithTimeout(logger.WithRunID(context.Background(), logger.RunIDFromContext(ctx)), archiveWriteTimeout)
	defer cancel()

	rounded := model.RoundProgress(final)
	s.mu.Lock()
	run.ID = s.runID
	event := EventSimulationCompleted
	switch {
	case runErr == nil:
		run.Status = model.RunCompleted
		run.Insights = &report
		s.insights = &report
		s.message = "Simulation complete. Balance restored through ELO!"
		l.Info().Int("matches", final.MatchesCompleted).Str("insights", string(report.Status)).
			Dur("elapsed", time.Since(startedAt)).Msg("Simulation completed")
	case errors.Is(runErr, context.Canceled):
		run.Status = model.RunCancelled
		event = EventSimulationCancelled
		s.message = fmt.Sprintf("Simulation cancelled after %s matches.", balance.FormatCount(final.MatchesCompleted))
		l.Info().Int("matches", final.MatchesCompleted).Msg("Simulation cancelled")
	default:
		run.Status = model.RunFailed
		run.Error = runErr.Error()
		event = EventSimulationFailed
		s.message = "Simulation failed: " + runErr.Error()
		l.Error().Err(runErr).Int("matches", final.MatchesCompleted).Msg("Simulation failed")
	}
	s.status = run.Status
	s.progress = &rounded
	s.running = false
	s.cancel = nil
	s.updatedAt = time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				l.Error().Interface("panic", r).Str("event", event).Msg("Broadcast panicked")
			}
		}()
		s.publishLocked(storeCtx, event)
	}()
	s.mu.Unlock()

	s.flushStore(true)
	if s.cache != nil && run.Insights != nil {
		if data, err := json.Marshal(run.Insights); err == nil {
			if err := s.cache.SetInsights(storeCtx, run.ID, data, insightsTTL); err != nil {
				l.Warn().Err(err).Msg("Failed to cache insights")
			}
		}
	}
	if s.runs != nil {
		if err := s.runs.Save(storeCtx, run); err != nil {
			l.Error().Err(err).Msg("Failed to archive run")
		}
	}
}

// publication is a snapshot marshalled under s.mu, waiting to be written to
// the cache once the lock is released.
type publication struct {
	runID    string
	event    string
	snapshot json.RawMessage
	envelope json.RawMessage // nil for progress ticks
}

// publishLocked queues the current snapshot for the cache and broadcasts it.
// Callers hold s.mu and call flushStore after releasing it.
func (s *SimulationService) publishLocked(ctx context.Context, eventType string) {
	snap := s.snapshotLocked()
	if s.cache != nil {
		if data, err := json.Marshal(snap); err != nil {
			logger.FromContext(ctx).Error().Err(err).Msg("Failed to marshal snapshot")
		} else {
			pub := &publication{runID: s.runID, event: eventType, snapshot: data}
			if eventType != EventSimulationProgress {
				pub.envelope, _ = json.Marshal(map[string]any{"type": eventType, "run_id": s.runID, "data": json.RawMessage(data)})
			}
			s.storeMu.Lock()
			s.pending = append(s.pending, pub)
			s.storeMu.Unlock()
		}
	}
	s.broadcaster.BroadcastEvent(s.runID, eventType, snap)
}

// flushStore writes queued publications to the cache in order. Only one caller
// drains at a time; with wait false a caller that finds a drain in progress
// leaves its publications to it.
func (s *SimulationService) flushStore(wait bool) {
	if s.cache == nil {
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	for s.draining {
		if !wait {
			return
		}
		s.storeIdle.Wait()
	}
	s.draining = true
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		s.storeMu.Unlock()
		s.writeBatch(batch)
		s.storeMu.Lock()
	}
	s.draining = false
	s.storeIdle.Broadcast()
}

// writeBatch stores the newest snapshot of batch and publishes its lifecycle
// events in order.
func (s *SimulationService) writeBatch(batch []*publication) {
	last := batch[len(batch)-1]
	ctx, cancel := context.WithTimeout(logger.WithRunID(context.Background(), last.runID), archiveWriteTimeout)
	defer cancel()
	l := logger.FromContext(ctx)
	if err := s.cache.SetSnapshot(ctx, last.snapshot); err != nil {
		l.Warn().Err(err).Msg("Failed to cache snapshot")
	}
	for _, pub := range batch {
		if pub.envelope == nil {
			continue
		}
		if err := s.cache.PublishEvent(ctx, pub.envelope); err != nil {
			l.Warn().Err(err).Str("event", pub.event).Msg("Failed to publish event")
		}
	}
}

// Cancel stops the running simulation at its next batch boundary.
func (s *SimulationService) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return ErrNotRunning
	}
	s.cancel()
	return nil
}

// Wait blocks until the current run (if any) finishes or ctx is done.
func (s *SimulationService) Wait(ctx context.Context) error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetStrengthSpread rescales civilization strengths and clears the previous
// run's results. It is a no-op while a simulation runs or for invalid spreads.
func (s *SimulationService) SetStrengthSpread(ctx context.Context, spread float64) bool {
	s.mu.Lock()
	if s.running || !s.registry.ApplySpread(spread) {
		s.mu.Unlock()
		return false
	}
	s.runID = ""
	s.status = model.RunIdle
	s.progress = nil
	s.insights = nil
	s.message = "Civ strength spread adjusted. Awaiting simulation."
	s.updatedAt = time.Now()
	logger.FromContext(ctx).Info().Float64("spread", spread).
		Float64("averageStrength", s.registry.AverageStrength()).Msg("Strength spread updated")
	s.publishLocked(ctx, EventSpreadChanged)
	s.mu.Unlock()

	go s.flushStore(false)
	return true
}

// Civilizations returns the catalog at the current spread.
func (s *SimulationService) Civilizations() model.CivilizationList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CivilizationsFrom(s.registry)
}

// Snapshot returns the driver's live state.
func (s *SimulationService) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *SimulationService) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		RunID:     s.runID,
		Status:    s.status,
		Message:   s.message,
		Running:   s.running,
		Profile:   s.registry.Profile(),
		Spread:    s.registry.Spread(),
		Speed:     s.runSpeed,
		UpdatedAt: s.updatedAt,
	}
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	return snap
}

// Insights returns the report of the last completed run.
func (s *SimulationService) Insights() (*balance.InsightReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.running {
		return nil, ErrInsightsPending
	}
	if s.insights == nil {
		return nil, ErrNoResults
	}
	r := *s.insights
	return &r, nil
}

// RunInsights returns the insight report of a finished run, looking at the
// last run in memory, then the cache, then the archive.
func (s *SimulationService) RunInsights(ctx context.Context, runID string) (*balance.InsightReport, error) {
	s.mu.RLock()
	current := runID == s.runID
	running := s.running
	var report *balance.InsightReport
	if current && s.insights != nil {
		r := *s.insights
		report = &r
	}
	s.mu.RUnlock()
	if current && running {
		return nil, ErrInsightsPending
	}
	if report != nil {
		return report, nil
	}
	if s.cache == nil && s.runs == nil {
		return nil, ErrArchiveDisabled
	}

	if s.cache != nil {
		data, err := s.cache.GetInsights(ctx, runID)
		switch {
		case err != nil:
			logger.FromContext(ctx).Warn().Err(err).Str("runId", runID).Msg("Failed to read cached insights")
		case data != nil:
			var r balance.InsightReport
			if err := json.Unmarshal(data, &r); err == nil {
				return &r, nil
			}
		}
	}
	if s.runs == nil {
		return nil, ErrRunNotFound
	}
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	if run.Insights == nil {
		return nil, ErrNoResults
	}
	return run.Insights, nil
}

// ListRuns returns recently archived runs.
func (s *SimulationService) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if s.runs == nil {
		return nil, ErrArchiveDisabled
	}
	return s.runs.ListRecent(ctx, limit)
}

// GetRun returns one archived run.
func (s *SimulationService) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if s.runs == nil {
		return nil, ErrArchiveDisabled
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}
