package plusminus

import (
	"log/slog"
	"sync"

	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// OnCourtFunc returns the players on court for a side at the moment of a score change
type OnCourtFunc func(side model.TeamSide) []model.PlayerID

// Attributor owns the plus/minus ledger. It is the only writer of the ledger.
type Attributor struct {
	mu      sync.Mutex
	ledger  model.PlusMinusLedger
	onCourt OnCourtFunc
	logger  *slog.Logger
}

// New creates an Attributor with an empty ledger
func New(onCourt OnCourtFunc, logger *slog.Logger) *Attributor {
	return &Attributor{
		ledger:  make(model.PlusMinusLedger),
		onCourt: onCourt,
		logger:  logger.With(slog.String("component", "plusminus")),
	}
}

// OnScoreChange attributes the score deltas between two scorelines to the
// players on court. Points scored by a side count plus for that side's
// on-court players and minus for the opponent's. Home and away deltas are
// applied independently. Returns true if the ledger changed.
func (a *Attributor) OnScoreChange(prevHome, prevAway, newHome, newAway int) bool {
	deltaHome := newHome - prevHome
	deltaAway := newAway - prevAway
	if deltaHome == 0 && deltaAway == 0 {
		return false
	}

	if deltaHome < 0 || deltaAway < 0 {
		a.logger.Warn("score decreased, correction not attributed",
			slog.Int("delta_home", deltaHome),
			slog.Int("delta_away", deltaAway),
		)
	}

	home := a.onCourt(model.SideHome)
	away := a.onCourt(model.SideAway)
	if len(home) == 0 && len(away) == 0 {
		a.logger.Info("no players on court, score change not attributed",
			slog.Int("delta_home", deltaHome),
			slog.Int("delta_away", deltaAway),
		)
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	changed := false
	if deltaHome > 0 {
		a.applyLocked(home, away, deltaHome)
		changed = true
	}
	if deltaAway > 0 {
		a.applyLocked(away, home, deltaAway)
		changed = true
	}
	return changed
}

func (a *Attributor) applyLocked(scoring, conceding []model.PlayerID, points int) {
	for _, id := range scoring {
		a.ledger[id] += points
	}
	for _, id := range conceding {
		a.ledger[id] -= points
	}
	metrics.RecordAttribution()
}

// Reconcile replaces the local ledger with the backend's values
func (a *Attributor) Reconcile(server map[model.PlayerID]int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ledger = make(model.PlusMinusLedger, len(server))
	for id, v := range server {
		a.ledger[id] = v
	}
}

// Ledger returns a copy of the ledger
func (a *Attributor) Ledger() model.PlusMinusLedger {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Clone()
}

// Get returns one player's plus/minus
func (a *Attributor) Get(id model.PlayerID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger[id]
}
