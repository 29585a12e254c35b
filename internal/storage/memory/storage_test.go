package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/hoopstat/scorekeeper/internal/dependencies/mocks"
	"github.com/hoopstat/scorekeeper/internal/model"
)

type StorageSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = New(s.clock, time.Hour)
	s.ctx = context.Background()
}

func snapshot(gameID model.GameID, userID model.UserID) *model.SessionSnapshot {
	return &model.SessionSnapshot{
		GameID:           gameID,
		UserID:           userID,
		State:            model.GameStateInProgress,
		Quarter:          2,
		RemainingSeconds: 321,
		HomeScore:        40,
		AwayScore:        38,
		HomeOnCourt:      []model.PlayerID{"h1", "h2", "h3", "h4", "h5"},
		PlayerMinutes:    model.TimeLedger{"h1": 60000},
		PlusMinus:        model.PlusMinusLedger{"h1": 2},
		Permissions:      model.PermissionSet{CanEditPoints: true},
	}
}

func (s *StorageSuite) TestSaveAndGetSnapshot() {
	snap := snapshot("g1", "u1")
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snap))

	got, err := s.storage.GetSnapshot(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	s.Equal(snap, got)
}

func (s *StorageSuite) TestGetSnapshotReturnsCopy() {
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snapshot("g1", "u1")))

	got, err := s.storage.GetSnapshot(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	got.PlusMinus["h1"] = 99

	again, err := s.storage.GetSnapshot(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	s.Equal(2, again.PlusMinus["h1"])
}

func (s *StorageSuite) TestGetSnapshotMiss() {
	_, err := s.storage.GetSnapshot(s.ctx, "g1", "u1")
	s.ErrorIs(err, model.ErrCacheMiss)
}

func (s *StorageSuite) TestSnapshotExpires() {
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snapshot("g1", "u1")))

	s.clock.Advance(time.Hour)

	_, err := s.storage.GetSnapshot(s.ctx, "g1", "u1")
	s.ErrorIs(err, model.ErrCacheMiss)
}

func (s *StorageSuite) TestDeleteSnapshot() {
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snapshot("g1", "u1")))
	s.Require().NoError(s.storage.DeleteSnapshot(s.ctx, "g1", "u1"))

	_, err := s.storage.GetSnapshot(s.ctx, "g1", "u1")
	s.ErrorIs(err, model.ErrCacheMiss)
}

func (s *StorageSuite) TestListSnapshotsForUser() {
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snapshot("g2", "u1")))
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snapshot("g1", "u1")))
	s.Require().NoError(s.storage.SaveSnapshot(s.ctx, snapshot("g1", "u2")))

	list, err := s.storage.ListSnapshots(s.ctx, "u1")
	s.Require().NoError(err)

	s.Require().Len(list, 2)
	s.Equal(model.GameID("g1"), list[0].GameID)
	s.Equal(model.GameID("g2"), list[1].GameID)
}
