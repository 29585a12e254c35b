package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/gameclock"
)

// Operation labels for write metrics
const (
	opSubstitution   = "substitution"
	opSetStarters    = "set_starters"
	opUpdateScore    = "update_score"
	opRecordStat     = "record_stat"
	opRecordShot     = "record_shot"
	opSetPermissions = "set_permissions"
)

// Clock

// StartClock starts the game clock. Starting a running clock does nothing.
func (s *Session) StartClock(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkWrite(model.PermControlClock); err != nil {
		return err
	}
	if !s.lineup.HasFullLineups() {
		return oops.In("session").
			Code("INVALID_LINEUP_SIZE").
			With("game_id", s.gameID).
			Hint("set starters before starting the clock").
			Wrap(model.ErrInvalidLineupSize)
	}

	if s.tracker.Running() {
		return nil
	}

	s.mu.Lock()
	s.clockQuarter = s.game.Quarter
	quarter := s.clockQuarter
	s.mu.Unlock()

	if err := s.tracker.Start(); err != nil {
		if errors.Is(err, gameclock.ErrQuarterOver) {
			return oops.In("session").
				Code("QUARTER_OVER").
				With("game_id", s.gameID).
				With("quarter", quarter).
				Wrap(err)
		}
		return err
	}

	s.emit(model.EventClockStarted, s.clockPayload(), false)
	s.saveSnapshot()
	return nil
}

// PauseClock stops the game clock and flushes time on court to the backend.
// A failed flush is logged; the clock stays paused either way.
func (s *Session) PauseClock(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.require(model.PermControlClock); err != nil {
		return err
	}
	if !s.tracker.Running() {
		return nil
	}

	if err := s.tracker.Pause(s.user.Context(ctx)); err != nil {
		errutil.LogError(s.logger, "failed to flush player minutes on pause", err)
	}

	s.emit(model.EventClockPaused, s.clockPayload(), false)
	s.saveSnapshot()
	return nil
}

// EndQuarter ends the current period early. The clock is paused and flushed,
// the backend advances the period, and local state is reloaded.
func (s *Session) EndQuarter(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkWrite(model.PermEndQuarter); err != nil {
		return err
	}
	ctx = s.user.Context(ctx)

	s.mu.RLock()
	quarter := s.game.Quarter
	s.mu.RUnlock()

	if err := s.tracker.Pause(ctx); err != nil {
		errutil.LogError(s.logger, "failed to flush player minutes at quarter end", err)
	}
	if err := s.advanceQuarterLocked(ctx, quarter); err != nil {
		errutil.LogError(s.logger, "failed to end quarter", err, slog.Int("quarter", quarter))
		return err
	}

	s.logger.Info("quarter ended manually", slog.Int("quarter", quarter))
	s.emit(model.EventQuarterEnded, model.QuarterEndedPayload{Quarter: quarter}, true)

	if err := s.reloadLocked(ctx); err != nil {
		errutil.LogWarn(s.logger, "reload after quarter end failed", err)
	}
	return nil
}

// Lineups

// SetStarters sets both starting lineups
func (s *Session) SetStarters(ctx context.Context, home, away []model.PlayerID) error {
	err := s.setStarters(ctx, home, away)
	metrics.RecordWrite(opSetStarters, outcome(err))
	return err
}

func (s *Session) setStarters(ctx context.Context, home, away []model.PlayerID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.require(model.PermSetStarters); err != nil {
		return err
	}
	starting, err := s.requireStartable()
	if err != nil {
		return err
	}
	if err := s.lineup.ValidateStarters(home, away); err != nil {
		return err
	}

	if err := s.deps.Games.SetStarters(s.user.Context(ctx), s.gameID, home, away); err != nil {
		errutil.LogError(s.logger, "backend rejected starters", err)
		return err
	}
	if starting {
		s.startGameLocked()
	}
	s.commitLocked(ctx, s.lineup.SetStarters(home, away), opSetStarters)

	s.logger.Info("starters set", slog.Bool("game_started", starting))
	s.emit(model.EventLineupSet, model.LineupPayload{Home: home, Away: away}, true)
	s.saveSnapshot()
	return nil
}

// Substitute swaps a bench player in for an on-court player. Substitutions
// are allowed whether or not the clock is running.
func (s *Session) Substitute(ctx context.Context, side model.TeamSide, outID, inID model.PlayerID) error {
	err := s.substitute(ctx, side, outID, inID)
	metrics.RecordWrite(opSubstitution, outcome(err))
	return err
}

func (s *Session) substitute(ctx context.Context, side model.TeamSide, outID, inID model.PlayerID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkWrite(model.PermMakeSubstitutions); err != nil {
		return err
	}
	if err := s.lineup.ValidateSubstitution(side, outID, inID); err != nil {
		return err
	}

	req := model.SubstitutionRequest{
		GameID:          s.gameID,
		TeamSide:        side,
		PlayerOutID:     outID,
		PlayerInID:      inID,
		GameTimeElapsed: s.tracker.Elapsed(),
	}
	if err := s.deps.Games.Substitute(s.user.Context(ctx), req); err != nil {
		errutil.LogError(s.logger, "backend rejected substitution", err,
			slog.String("player_out", string(outID)),
			slog.String("player_in", string(inID)),
		)
		return err
	}
	s.commitLocked(ctx, s.lineup.Substitute(side, outID, inID), opSubstitution)

	s.logger.Info("substitution",
		slog.String("team_side", string(side)),
		slog.String("player_out", string(outID)),
		slog.String("player_in", string(inID)),
		slog.Int("game_time", req.GameTimeElapsed),
	)
	s.emit(model.EventSubstitution, model.SubstitutionPayload{
		TeamSide:    side,
		PlayerOutID: outID,
		PlayerInID:  inID,
		GameTime:    req.GameTimeElapsed,
	}, true)
	s.saveSnapshot()
	return nil
}

// Scoring

// UpdateScore sets the score. Positive changes are attributed to the players
// on court.
func (s *Session) UpdateScore(ctx context.Context, home, away int) error {
	err := s.updateScore(ctx, home, away)
	metrics.RecordWrite(opUpdateScore, outcome(err))
	return err
}

func (s *Session) updateScore(ctx context.Context, home, away int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkWrite(model.PermEditPoints); err != nil {
		return err
	}
	if home < 0 || away < 0 {
		return oops.In("session").
			Code("INVALID_SCORE").
			With("home", home).
			With("away", away).
			Wrap(model.ErrInvalidScore)
	}
	return s.applyScoreLocked(ctx, home, away)
}

func (s *Session) applyScoreLocked(ctx context.Context, home, away int) error {
	if err := s.deps.Games.UpdateScore(s.user.Context(ctx), s.gameID, home, away); err != nil {
		errutil.LogError(s.logger, "backend rejected score", err,
			slog.Int("home", home),
			slog.Int("away", away),
		)
		return err
	}

	s.mu.Lock()
	prevHome, prevAway := s.game.HomeScore, s.game.AwayScore
	s.game.HomeScore = home
	s.game.AwayScore = away
	s.mu.Unlock()

	s.plusMinus.OnScoreChange(prevHome, prevAway, home, away)

	s.emit(model.EventScoreUpdated, model.ScorePayload{HomeScore: home, AwayScore: away}, true)
	s.saveSnapshot()
	return nil
}

// RecordStat records a non-scoring stat for a player on court
func (s *Session) RecordStat(ctx context.Context, playerID model.PlayerID, kind model.StatKind) error {
	err := s.recordStat(ctx, playerID, kind)
	metrics.RecordWrite(opRecordStat, outcome(err))
	return err
}

func (s *Session) recordStat(ctx context.Context, playerID model.PlayerID, kind model.StatKind) error {
	perm, ok := kind.RequiredPermission()
	if !ok {
		return oops.In("session").
			Code("UNKNOWN_STAT").
			With("kind", kind).
			Wrap(model.ErrUnknownStat)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkWrite(perm); err != nil {
		return err
	}
	if err := s.requireOnCourt(playerID); err != nil {
		return err
	}

	if err := s.deps.Games.RecordStat(s.user.Context(ctx), s.gameID, playerID, kind); err != nil {
		errutil.LogError(s.logger, "backend rejected stat", err,
			slog.String("player_id", string(playerID)),
			slog.String("kind", string(kind)),
		)
		return err
	}

	s.emit(model.EventStatRecorded, model.StatPayload{PlayerID: playerID, Kind: kind}, true)
	return nil
}

// RecordShot records a shot attempt for a player on court. A made shot also
// adds its points to the shooter's team score.
func (s *Session) RecordShot(ctx context.Context, playerID model.PlayerID, shotType model.ShotType, made bool) (*model.ShotRecord, error) {
	shot, err := s.recordShot(ctx, playerID, shotType, made)
	metrics.RecordWrite(opRecordShot, outcome(err))
	return shot, err
}

func (s *Session) recordShot(ctx context.Context, playerID model.PlayerID, shotType model.ShotType, made bool) (*model.ShotRecord, error) {
	points := shotType.Points()
	if points == 0 {
		return nil, oops.In("session").
			Code("UNKNOWN_STAT").
			With("shot_type", shotType).
			Wrap(model.ErrUnknownStat)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkWrite(shotType.RequiredPermission()); err != nil {
		return nil, err
	}
	if made {
		if err := s.require(model.PermEditPoints); err != nil {
			return nil, err
		}
	}
	if err := s.requireOnCourt(playerID); err != nil {
		return nil, err
	}

	shot := &model.ShotRecord{
		PlayerID:     playerID,
		ShotType:     shotType,
		Made:         made,
		GameTime:     s.tracker.Elapsed(),
		PlayerTimeMs: s.tracker.PlayerTimeMs(playerID),
	}
	if err := s.deps.Games.RecordShot(s.user.Context(ctx), s.gameID, *shot); err != nil {
		errutil.LogError(s.logger, "backend rejected shot", err,
			slog.String("player_id", string(playerID)),
			slog.String("shot_type", string(shotType)),
		)
		return nil, err
	}
	s.emit(model.EventShotRecorded, model.ShotPayload{Shot: *shot}, true)

	if !made {
		return shot, nil
	}

	side, _ := s.lineup.SideOf(playerID)
	s.mu.RLock()
	home, away := s.game.HomeScore, s.game.AwayScore
	s.mu.RUnlock()
	if side == model.SideHome {
		home += points
	} else {
		away += points
	}
	if err := s.applyScoreLocked(ctx, home, away); err != nil {
		return shot, err
	}
	return shot, nil
}

// Permissions

// SetUserPermissions changes another user's permissions in this game
func (s *Session) SetUserPermissions(ctx context.Context, userID model.UserID, patch model.PermissionPatch) error {
	err := s.setUserPermissions(ctx, userID, patch)
	metrics.RecordWrite(opSetPermissions, outcome(err))
	return err
}

func (s *Session) setUserPermissions(ctx context.Context, userID model.UserID, patch model.PermissionPatch) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.require(model.PermManagePermissions); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return oops.In("session").
			Code("INVALID_PERMISSION").
			With("user_id", userID).
			Wrap(err)
	}

	ctx = s.user.Context(ctx)
	if err := s.deps.Permissions.SetUserPermissions(ctx, s.gameID, userID, patch); err != nil {
		errutil.LogError(s.logger, "backend rejected permission change", err,
			slog.String("target_user", string(userID)))
		return err
	}

	s.logger.Info("permissions changed",
		slog.String("target_user", string(userID)),
		slog.Int("fields", len(patch)),
	)
	s.emit(model.EventPermissions, model.PermissionsPayload{UserID: userID, Patch: patch}, true)

	if userID == s.user.User.ID {
		if err := s.refreshPermissionsLocked(ctx); err != nil {
			errutil.LogWarn(s.logger, "failed to refresh own permissions", err)
		}
	}
	return nil
}

// RefreshPermissions re-reads the user's permissions from the backend
func (s *Session) RefreshPermissions(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.refreshPermissionsLocked(s.user.Context(ctx))
}

func (s *Session) refreshPermissionsLocked(ctx context.Context) error {
	perms, err := s.deps.Permissions.GetMyPermissions(ctx, s.gameID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	set := perms.Permissions
	s.serverPerms = &set
	s.isCreator = perms.IsGameCreator
	s.mu.Unlock()

	s.saveSnapshot()
	return nil
}

// Sync

// Reload replaces local state with the backend's. Server values win for the
// score, lineups and plus/minus. The clock and time on court are only taken
// from the backend while the clock is paused.
func (s *Session) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.reloadLocked(s.user.Context(ctx))
}

func (s *Session) reloadLocked(ctx context.Context) error {
	game, err := s.deps.Games.GetGame(ctx, s.gameID)
	if err != nil {
		return err
	}
	if err := s.refreshPermissionsLocked(ctx); err != nil {
		errutil.LogWarn(s.logger, "failed to refresh permissions during reload", err)
	}

	s.mu.Lock()
	s.game = game.Clone()
	s.mu.Unlock()

	s.lineup.Replace(game.Home, game.Away)
	if s.tracker.Reset(game.RemainingSeconds, game.PeriodLengthSeconds()) && game.PlayerMinutes != nil {
		s.tracker.SetLedger(model.TimeLedger(game.PlayerMinutes))
	}
	if game.PlusMinus != nil {
		s.plusMinus.Reconcile(game.PlusMinus)
	}

	s.logger.Debug("reloaded from backend",
		slog.Int("quarter", game.Quarter),
		slog.String("state", string(game.State)),
	)
	s.emit(model.EventGameRefreshed, s.View(), false)
	s.saveSnapshot()
	return nil
}

// checkWrite runs the local checks shared by every game write
func (s *Session) checkWrite(p model.Permission) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.require(p); err != nil {
		return err
	}
	return s.requireInProgress()
}

// startGameLocked mirrors the backend's scheduled to in_progress transition.
// Both ledgers start from zero.
func (s *Session) startGameLocked() {
	s.mu.Lock()
	s.game.State = model.GameStateInProgress
	s.game.PlayerMinutes = make(map[model.PlayerID]int64)
	s.game.PlusMinus = make(map[model.PlayerID]int)
	s.mu.Unlock()

	s.tracker.SetLedger(model.TimeLedger{})
	s.plusMinus.Reconcile(nil)
}

// commitLocked applies a confirmed write locally. A failure means local state
// had drifted from the backend's, so it is reloaded.
func (s *Session) commitLocked(ctx context.Context, err error, operation string) {
	if err == nil {
		return
	}
	errutil.LogWarn(s.logger, "local state diverged from backend", err, slog.String("operation", operation))
	if err := s.reloadLocked(s.user.Context(ctx)); err != nil {
		errutil.LogError(s.logger, "reload after divergence failed", err)
	}
}

func (s *Session) clockPayload() model.ClockPayload {
	s.mu.RLock()
	quarter := s.game.Quarter
	s.mu.RUnlock()
	return model.ClockPayload{
		Quarter:          quarter,
		RemainingSeconds: s.tracker.Remaining(),
		Running:          s.tracker.Running(),
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case model.IsValidationError(err):
		return metrics.OutcomeInvalid
	case errors.Is(err, model.ErrPermissionDenied),
		errors.Is(err, model.ErrNotAuthenticated),
		errors.Is(err, model.ErrBackendRejected):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}
