package factory

import (
	"time"

	"github.com/palacemc/palace-web/internal/dependencies/mocks"
	"github.com/palacemc/palace-web/internal/storage/memory"
	"github.com/palacemc/palace-web/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Memory is the concrete storage backend
	Memory *memory.Storage

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Only the Discord fields of cfg and the registry config are used.
func NewTestApp(cfg Config) (*TestApp, error) {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	if cfg.Logger == nil {
		cfg.Logger = testutil.NopLogger()
	}
	if cfg.InviteURL == "" {
		cfg.InviteURL = "https://discord.gg/example"
	}

	app, err := newWithDependencies(store, mockClock, mockRandom, cfg)
	if err != nil {
		return nil, err
	}

	return &TestApp{
		App:        app,
		Memory:     store,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}, nil
}
