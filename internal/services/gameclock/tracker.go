package gameclock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Errors
var (
	ErrQuarterOver = errors.New("no time remaining in the period")
	ErrClosed      = errors.New("clock tracker is closed")
)

// TickInterval is the countdown resolution
const TickInterval = time.Second

// DefaultSyncQueueSize bounds the number of pending time syncs
const DefaultSyncQueueSize = 16

const syncTimeout = 5 * time.Second

// Syncer receives clock updates. Implemented by the game repository.
type Syncer interface {
	UpdateGameTime(ctx context.Context, gameID model.GameID, elapsedSeconds int) error
	UpdatePlayerMinutes(ctx context.Context, gameID model.GameID, minutes model.TimeLedger) error
}

// OnCourtFunc returns the players currently on court for both teams
type OnCourtFunc func() []model.PlayerID

// Hooks are invoked from the ticker goroutine without the tracker lock held.
// They must not call Pause or Close.
type Hooks struct {
	OnTick         func(remaining int)
	OnQuarterEnded func()
}

// Config holds configuration for a Tracker
type Config struct {
	GameID               model.GameID
	QuarterLengthSeconds int
	RemainingSeconds     int
	SyncQueueSize        int
	Ledger               model.TimeLedger
}

// Tracker owns the countdown for the current period and the time-on-court ledger.
// At most one ticker exists at a time.
type Tracker struct {
	gameID  model.GameID
	clock   clock.Clock
	syncer  Syncer
	onCourt OnCourtFunc
	hooks   Hooks
	logger  *slog.Logger

	mu           sync.Mutex
	running      bool
	closed       bool
	generation   int
	remaining    int
	periodLength int
	ledger       model.TimeLedger
	ticker       clock.Ticker
	stop         chan struct{}
	done         chan struct{}

	baseCtx    context.Context
	cancel     context.CancelFunc
	syncQueue  chan syncRequest
	workerDone chan struct{}
}

// syncRequest is one elapsed-time update for the sync worker. Requests with a
// done channel are barriers: the worker closes done once every earlier
// request has been handled.
type syncRequest struct {
	elapsed int
	done    chan struct{}
}

// New creates a Tracker and starts its sync worker. ctx is the base context
// for background syncs; cancelling it has the same effect on the worker as Close.
func New(ctx context.Context, cfg Config, clk clock.Clock, syncer Syncer, onCourt OnCourtFunc, hooks Hooks, logger *slog.Logger) *Tracker {
	if cfg.SyncQueueSize <= 0 {
		cfg.SyncQueueSize = DefaultSyncQueueSize
	}
	if cfg.QuarterLengthSeconds <= 0 {
		cfg.QuarterLengthSeconds = model.DefaultQuarterLengthSeconds
	}
	ledger := cfg.Ledger.Clone()

	workerCtx, cancel := context.WithCancel(ctx)
	t := &Tracker{
		gameID:       cfg.GameID,
		clock:        clk,
		syncer:       syncer,
		onCourt:      onCourt,
		hooks:        hooks,
		logger:       logger.With(slog.String("component", "gameclock"), slog.String("game_id", string(cfg.GameID))),
		remaining:    cfg.RemainingSeconds,
		periodLength: cfg.QuarterLengthSeconds,
		ledger:       ledger,
		baseCtx:      workerCtx,
		cancel:       cancel,
		syncQueue:    make(chan syncRequest, cfg.SyncQueueSize),
		workerDone:   make(chan struct{}),
	}
	go t.syncWorker()
	return t
}

// Start begins the countdown. It is a no-op if the clock is already running.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.running {
		return nil
	}
	if t.remaining <= 0 {
		return ErrQuarterOver
	}

	t.running = true
	t.generation++
	t.ticker = t.clock.NewTicker(TickInterval)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.generation, t.ticker, t.stop, t.done)

	t.logger.Info("clock started", slog.Int("remaining_seconds", t.remaining))
	return nil
}

// Pause stops the countdown and flushes the time ledger to the backend as one
// batch. Pausing a stopped clock does nothing.
func (t *Tracker) Pause(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	snapshot := t.haltLocked()
	stop, done := t.stop, t.done
	remaining := t.remaining
	elapsed := t.elapsedLocked()
	t.mu.Unlock()

	close(stop)
	<-done

	t.logger.Info("clock paused", slog.Int("remaining_seconds", remaining))
	if err := t.settleSyncs(ctx, elapsed); err != nil {
		errutil.LogWarn(t.logger, "pending time syncs not settled", err)
	}
	return t.flush(ctx, snapshot)
}

// Reset sets the countdown for a new period. It is ignored while the clock is
// running, since the local countdown is authoritative then.
func (t *Tracker) Reset(remainingSeconds, periodLengthSeconds int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return false
	}
	t.remaining = remainingSeconds
	if periodLengthSeconds > 0 {
		t.periodLength = periodLengthSeconds
	}
	return true
}

// Remaining returns the seconds left in the period
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Elapsed returns seconds elapsed in the period, never negative
func (t *Tracker) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

// Running reports whether the countdown is running
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Ledger returns a copy of the time-on-court ledger
func (t *Tracker) Ledger() model.TimeLedger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Clone()
}

// PlayerTimeMs returns a single player's accumulated on-court milliseconds
func (t *Tracker) PlayerTimeMs(id model.PlayerID) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger[id]
}

// SetLedger replaces the ledger with server values. Ignored while running.
func (t *Tracker) SetLedger(ledger model.TimeLedger) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return false
	}
	t.ledger = ledger.Clone()
	return true
}

// Close stops the ticker and the sync worker and waits for both. The ledger
// is not flushed. Safe to call more than once, but not from a hook.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	wasRunning := t.running
	stop, done := t.stop, t.done
	if wasRunning {
		t.haltLocked()
	}
	t.mu.Unlock()

	if wasRunning {
		close(stop)
	}
	if done != nil {
		<-done
	}
	t.cancel()
	<-t.workerDone
}

// haltLocked stops the current ticker and returns a ledger snapshot
func (t *Tracker) haltLocked() model.TimeLedger {
	t.running = false
	t.generation++
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	return t.ledger.Clone()
}

func (t *Tracker) elapsedLocked() int {
	elapsed := t.periodLength - t.remaining
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (t *Tracker) run(gen int, ticker clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !t.tick(gen) {
				return
			}
		}
	}
}

// tick handles one second of game time. It returns false once the ticker
// owning gen should exit.
func (t *Tracker) tick(gen int) bool {
	t.mu.Lock()
	if !t.running || t.generation != gen {
		t.mu.Unlock()
		return false
	}

	t.remaining--
	for _, id := range t.onCourt() {
		t.ledger[id] += TickInterval.Milliseconds()
	}
	remaining := t.remaining
	elapsed := t.elapsedLocked()

	var snapshot model.TimeLedger
	ended := remaining <= 0
	if ended {
		t.remaining = 0
		remaining = 0
		snapshot = t.haltLocked()
	}
	t.mu.Unlock()

	metrics.RecordTick()
	t.enqueueSync(elapsed)
	if t.hooks.OnTick != nil {
		t.hooks.OnTick(remaining)
	}

	if !ended {
		return true
	}

	t.logger.Info("quarter time expired")
	ctx, cancel := context.WithTimeout(t.baseCtx, syncTimeout)
	defer cancel()
	if err := t.settleSyncs(ctx, elapsed); err != nil {
		errutil.LogWarn(t.logger, "pending time syncs not settled", err)
	}
	if err := t.flush(ctx, snapshot); err != nil {
		errutil.LogError(t.logger, "failed to flush player minutes at quarter end", err)
	}
	if t.hooks.OnQuarterEnded != nil {
		t.hooks.OnQuarterEnded()
	}
	return false
}

func (t *Tracker) flush(ctx context.Context, snapshot model.TimeLedger) error {
	if err := t.syncer.UpdatePlayerMinutes(ctx, t.gameID, snapshot); err != nil {
		metrics.RecordSyncFailure("update_player_minutes")
		return err
	}
	t.logger.Debug("player minutes flushed", slog.Int("players", len(snapshot)))
	return nil
}

// enqueueSync hands an elapsed-time update to the worker without blocking
func (t *Tracker) enqueueSync(elapsed int) {
	select {
	case t.syncQueue <- syncRequest{elapsed: elapsed}:
	default:
		metrics.RecordSyncDropped()
		t.logger.Warn("time sync queue full, dropping update", slog.Int("elapsed_seconds", elapsed))
	}
}

// settleSyncs waits for the worker to send every queued update, then makes
// sure the backend holds the final elapsed time even if updates were dropped.
// The clock must be stopped so nothing is queued behind the barrier.
func (t *Tracker) settleSyncs(ctx context.Context, elapsed int) error {
	done := make(chan struct{})
	select {
	case t.syncQueue <- syncRequest{elapsed: elapsed, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.baseCtx.Done():
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.baseCtx.Done():
		return ErrClosed
	}
}

func (t *Tracker) syncWorker() {
	defer close(t.workerDone)
	lastSent := -1
	for {
		select {
		case <-t.baseCtx.Done():
			return
		case req := <-t.syncQueue:
			if req.done == nil || req.elapsed != lastSent {
				if t.sendGameTime(req.elapsed) {
					lastSent = req.elapsed
				}
			}
			if req.done != nil {
				close(req.done)
			}
		}
	}
}

func (t *Tracker) sendGameTime(elapsed int) bool {
	ctx, cancel := context.WithTimeout(t.baseCtx, syncTimeout)
	defer cancel()
	if err := t.syncer.UpdateGameTime(ctx, t.gameID, elapsed); err != nil {
		metrics.RecordSyncFailure("update_game_time")
		errutil.LogWarn(t.logger, "time sync failed", err, slog.Int("elapsed_seconds", elapsed))
		return false
	}
	return true
}
