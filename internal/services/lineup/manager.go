package lineup

import (
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// Manager tracks which players are on court for each team and validates
// lineup changes. Rejected changes never modify state.
type Manager struct {
	mu     sync.RWMutex
	home   model.Team
	away   model.Team
	logger *slog.Logger
}

// New creates a Manager from the two rosters. The rosters are copied.
func New(home, away model.Team, logger *slog.Logger) *Manager {
	return &Manager{
		home:   home.Clone(),
		away:   away.Clone(),
		logger: logger.With(slog.String("component", "lineup")),
	}
}

// Replace overwrites both rosters, e.g. with the backend's snapshot after a reload
func (m *Manager) Replace(home, away model.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.home = home.Clone()
	m.away = away.Clone()
}

// Teams returns copies of both rosters
func (m *Manager) Teams() (home, away model.Team) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.home.Clone(), m.away.Clone()
}

// ValidateStarters checks a starting lineup without applying it
func (m *Manager) ValidateStarters(homeIDs, awayIDs []model.PlayerID) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, _, err := m.validateStarters(homeIDs, awayIDs)
	return err
}

// SetStarters marks exactly the given players on court and benches everyone else
func (m *Manager) SetStarters(homeIDs, awayIDs []model.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	homeSet, awaySet, err := m.validateStarters(homeIDs, awayIDs)
	if err != nil {
		return err
	}

	applyStarters(&m.home, homeSet)
	applyStarters(&m.away, awaySet)

	m.logger.Info("starters set",
		slog.Int("home_on_court", m.home.OnCourtCount()),
		slog.Int("away_on_court", m.away.OnCourtCount()),
	)
	return nil
}

func (m *Manager) validateStarters(homeIDs, awayIDs []model.PlayerID) (map[model.PlayerID]bool, map[model.PlayerID]bool, error) {
	homeSet := toSet(homeIDs)
	awaySet := toSet(awayIDs)

	if len(homeSet) != model.LineupSize {
		return nil, nil, lineupSizeError(model.SideHome, len(homeSet))
	}
	if len(awaySet) != model.LineupSize {
		return nil, nil, lineupSizeError(model.SideAway, len(awaySet))
	}

	for id := range homeSet {
		if !m.home.Has(id) {
			return nil, nil, crossTeamError(model.SideHome, id)
		}
	}
	for id := range awaySet {
		if !m.away.Has(id) {
			return nil, nil, crossTeamError(model.SideAway, id)
		}
	}

	return homeSet, awaySet, nil
}

// ValidateSubstitution checks a substitution without applying it
func (m *Manager) ValidateSubstitution(side model.TeamSide, outID, inID model.PlayerID) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validateSubstitution(side, outID, inID)
}

// Substitute swaps an on-court player for a bench player on the same team.
// Both flags flip together; the on-court count never changes.
func (m *Manager) Substitute(side model.TeamSide, outID, inID model.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateSubstitution(side, outID, inID); err != nil {
		return err
	}

	team := m.team(side)
	team.Player(outID).IsOnCourt = false
	team.Player(inID).IsOnCourt = true

	m.logger.Info("substitution applied",
		slog.String("team", string(side)),
		slog.String("player_out", string(outID)),
		slog.String("player_in", string(inID)),
	)
	return nil
}

func (m *Manager) validateSubstitution(side model.TeamSide, outID, inID model.PlayerID) error {
	if !side.Valid() {
		return oops.In("lineup").
			Code("INVALID_TEAM_SIDE").
			With("team", side).
			Wrap(model.ErrInvalidTeamSide)
	}
	if inID == outID {
		return teamMismatchError(side, outID, inID, "same player in and out")
	}

	team := m.team(side)
	out := team.Player(outID)
	if out == nil {
		return teamMismatchError(side, outID, inID, "player out not on roster")
	}
	in := team.Player(inID)
	if in == nil {
		return teamMismatchError(side, outID, inID, "player in not on roster")
	}

	if !out.IsOnCourt {
		return oops.In("lineup").
			Code("PLAYER_NOT_ON_COURT").
			With("team", side).
			With("player_id", outID).
			Wrap(model.ErrPlayerNotOnCourt)
	}
	if in.IsOnCourt {
		return oops.In("lineup").
			Code("PLAYER_ALREADY_ON_COURT").
			With("team", side).
			With("player_id", inID).
			Wrap(model.ErrPlayerAlreadyOnCourt)
	}

	if n := team.OnCourtCount(); n != model.LineupSize {
		return lineupSizeError(side, n)
	}

	return nil
}

// OnCourt returns the players currently on court for a side, in roster order
func (m *Manager) OnCourt(side model.TeamSide) []model.Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.team(side).Players, true)
}

// Bench returns the players currently on the bench for a side, in roster order
func (m *Manager) Bench(side model.TeamSide) []model.Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.team(side).Players, false)
}

// OnCourtIDs returns the IDs of on-court players for a side
func (m *Manager) OnCourtIDs(side model.TeamSide) []model.PlayerID {
	players := m.OnCourt(side)
	ids := make([]model.PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// IsOnCourt reports whether a player on either roster is on court
func (m *Manager) IsOnCourt(id model.PlayerID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := m.home.Player(id); p != nil {
		return p.IsOnCourt
	}
	if p := m.away.Player(id); p != nil {
		return p.IsOnCourt
	}
	return false
}

// SideOf returns the side a player is rostered on
func (m *Manager) SideOf(id model.PlayerID) (model.TeamSide, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.home.Has(id) {
		return model.SideHome, true
	}
	if m.away.Has(id) {
		return model.SideAway, true
	}
	return "", false
}

// HasFullLineups reports whether both teams have exactly five on court
func (m *Manager) HasFullLineups() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.home.OnCourtCount() == model.LineupSize && m.away.OnCourtCount() == model.LineupSize
}

func (m *Manager) team(side model.TeamSide) *model.Team {
	if side == model.SideAway {
		return &m.away
	}
	return &m.home
}

func applyStarters(team *model.Team, starters map[model.PlayerID]bool) {
	for i := range team.Players {
		team.Players[i].IsOnCourt = starters[team.Players[i].ID]
	}
}

func filter(players []model.Player, onCourt bool) []model.Player {
	out := make([]model.Player, 0, len(players))
	for _, p := range players {
		if p.IsOnCourt == onCourt {
			out = append(out, p)
		}
	}
	return out
}

func toSet(ids []model.PlayerID) map[model.PlayerID]bool {
	set := make(map[model.PlayerID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func lineupSizeError(side model.TeamSide, size int) error {
	return oops.In("lineup").
		Code("INVALID_LINEUP_SIZE").
		With("team", side).
		With("size", size).
		Wrap(model.ErrInvalidLineupSize)
}

func crossTeamError(side model.TeamSide, id model.PlayerID) error {
	return oops.In("lineup").
		Code("CROSS_TEAM_PLAYER").
		With("team", side).
		With("player_id", id).
		Wrap(model.ErrCrossTeamPlayer)
}

func teamMismatchError(side model.TeamSide, outID, inID model.PlayerID, reason string) error {
	return oops.In("lineup").
		Code("TEAM_MISMATCH").
		With("team", side).
		With("player_out", outID).
		With("player_in", inID).
		With("reason", reason).
		Wrap(model.ErrTeamMismatch)
}
