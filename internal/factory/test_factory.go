package factory

import (
	"time"

	"github.com/hoopstat/scorekeeper/internal/backend/memory"
	"github.com/hoopstat/scorekeeper/internal/config"
	"github.com/hoopstat/scorekeeper/internal/dependencies/mocks"
	"github.com/hoopstat/scorekeeper/internal/realtime"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	memstore "github.com/hoopstat/scorekeeper/internal/storage/memory"
	"github.com/hoopstat/scorekeeper/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDGenerator
}

// NewTestApp creates an App on the seeded reference backend with a manual
// clock and sequential IDs
func NewTestApp() (*TestApp, error) {
	cfg := config.Default()
	logger := testutil.NopLogger()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDGenerator()

	be := memory.New(mockClock, mockIDs, logger)
	if err := SeedDemo(be, cfg.Game); err != nil {
		return nil, err
	}

	app := &App{
		Config:        cfg,
		Logger:        logger,
		Clock:         mockClock,
		IDs:           mockIDs,
		Backend:       be,
		MemoryBackend: be,
		Notifier:      realtime.NewLoopback(logger),
		Cache:         memstore.New(mockClock, cfg.Cache.TTL),
	}
	app.wireServices(auth.Config{SessionDuration: cfg.Auth.SessionDuration}, cfg.Clock.SyncQueue)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}, nil
}
