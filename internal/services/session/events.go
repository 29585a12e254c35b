package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// emit stamps an event with this session as its source and hands it to the
// local listener. Published events also go to the realtime notifier.
func (s *Session) emit(eventType model.EventType, payload any, publish bool) {
	event := model.Event{
		ID:        s.deps.IDs.NewID(),
		Type:      eventType,
		Timestamp: s.deps.Clock.Now(),
		GameID:    s.gameID,
		UserID:    s.user.User.ID,
		Source:    s.id,
		Payload:   payload,
	}

	if publish {
		ctx, cancel := context.WithTimeout(s.baseCtx, backgroundTimeout)
		if err := s.deps.Notifier.Publish(ctx, event); err != nil {
			errutil.LogWarn(s.logger, "failed to publish event", err,
				slog.String("event_type", string(eventType)))
		}
		cancel()
	}

	if s.deps.Listener != nil {
		s.deps.Listener.Notify(event)
	}
}

// listen re-syncs with the backend on every event another session publishes
// for this game. Events are a signal only; their payloads are never applied.
func (s *Session) listen(events <-chan model.Event) {
	defer close(s.listenerDone)

	for event := range events {
		if event.Source == s.id {
			continue
		}
		s.logger.Debug("remote event received",
			slog.String("event_type", string(event.Type)),
			slog.String("from_user", string(event.UserID)),
		)
		if s.deps.Listener != nil {
			s.deps.Listener.Notify(event)
		}

		ctx, cancel := context.WithTimeout(s.baseCtx, backgroundTimeout)
		err := s.Reload(ctx)
		cancel()
		if err != nil && !errors.Is(err, model.ErrSessionNotOpen) {
			errutil.LogWarn(s.logger, "re-sync after remote event failed", err,
				slog.String("event_type", string(event.Type)))
		}
	}
}

func (s *Session) onTick(remaining int) {
	s.mu.RLock()
	quarter := s.game.Quarter
	s.mu.RUnlock()

	s.emit(model.EventClockTick, model.ClockPayload{
		Quarter:          quarter,
		RemainingSeconds: remaining,
		Running:          remaining > 0,
	}, false)
	s.saveSnapshot()
}

// onQuarterEnded runs on the ticker goroutine, so the backend round trips are
// handed to a tracked goroutine.
func (s *Session) onQuarterEnded() {
	s.mu.RLock()
	quarter := s.clockQuarter
	s.mu.RUnlock()

	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		s.handleQuarterEnded(quarter)
	}()
}

func (s *Session) handleQuarterEnded(quarter int) {
	ctx, cancel := context.WithTimeout(s.baseCtx, backgroundTimeout)
	defer cancel()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.logger.Info("quarter ended", slog.Int("quarter", quarter))
	s.emit(model.EventQuarterEnded, model.QuarterEndedPayload{Quarter: quarter}, true)

	if err := s.advanceQuarterLocked(ctx, quarter); err != nil {
		errutil.LogError(s.logger, "failed to advance quarter", err, slog.Int("quarter", quarter))
	}
	if err := s.reloadLocked(ctx); err != nil {
		errutil.LogWarn(s.logger, "reload after quarter end failed", err)
	}
}

// advanceQuarterLocked asks the backend to move past the given quarter. It
// does nothing if the backend has already left that quarter, so two clients
// ending the same quarter advance it once.
func (s *Session) advanceQuarterLocked(ctx context.Context, quarter int) error {
	current, err := s.deps.Games.GetGame(ctx, s.gameID)
	if err != nil {
		return err
	}
	if current.State != model.GameStateInProgress || current.Quarter != quarter {
		s.logger.Info("quarter already advanced",
			slog.Int("quarter", quarter),
			slog.Int("backend_quarter", current.Quarter),
			slog.String("state", string(current.State)),
		)
		return nil
	}
	return s.deps.Games.AdvanceQuarter(ctx, s.gameID)
}
