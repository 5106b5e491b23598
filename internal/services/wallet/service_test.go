package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/metrics"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/storage/memory"
	logutil "github.com/palacemc/palace-web/internal/testutil"
)

var steve = uuid.MustParse("8667ba71-b85a-4004-af54-457a9734eed7")

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.metrics = metrics.New()
	s.service = New(s.storage, logutil.NopLogger(), s.metrics, 0)
	s.ctx = context.Background()
	s.seed(map[string]int64{"primary": 30})
}

// seed replaces steve's wallets
func (s *ServiceSuite) seed(wallets map[string]int64) {
	_, _, err := s.storage.UpsertPlayer(s.ctx, steve, func(p *model.Player, created bool) error {
		p.Name = "Steve"
		p.Wallet = wallets
		return nil
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) stored() map[string]int64 {
	p, err := s.storage.GetPlayer(s.ctx, steve)
	s.Require().NoError(err)
	return p.Wallet
}

// Apply tests

func (s *ServiceSuite) TestFailIfPartialAbortsEverything() {
	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": -50}, false, true)
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": 30}, got.Wallets)
	s.Equal(map[string]bool{"primary": false}, got.Modified)
	s.Equal(map[string]int64{"primary": 30}, s.stored())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WalletUpdates.WithLabelValues("aborted")))
}

func (s *ServiceSuite) TestPartialRollbackKeepsOthers() {
	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": -50, "creative": 10}, false, false)
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": 30, "creative": 10}, got.Wallets)
	s.Equal(map[string]bool{"primary": false, "creative": true}, got.Modified)
	s.Equal(map[string]int64{"primary": 30, "creative": 10}, s.stored())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WalletUpdates.WithLabelValues("rolled_back")))
}

func (s *ServiceSuite) TestAbortReportsEveryTouchedWallet() {
	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": -50, "creative": 10}, false, true)
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": 30, "creative": 0}, got.Wallets)
	s.Equal(map[string]bool{"primary": false, "creative": false}, got.Modified)
	s.Equal(map[string]int64{"primary": 30}, s.stored())
}

func (s *ServiceSuite) TestAllowNegative() {
	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": -50}, true, true)
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": -20}, got.Wallets)
	s.Equal(map[string]bool{"primary": true}, got.Modified)
}

func (s *ServiceSuite) TestSufficientFundsCommit() {
	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": -30}, false, true)
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": 0}, got.Wallets)
	s.Equal(map[string]bool{"primary": true}, got.Modified)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WalletUpdates.WithLabelValues("committed")))
}

func (s *ServiceSuite) TestAddingToNegativeBalanceIsAlwaysSafe() {
	s.seed(map[string]int64{"primary": -80, "creative": 5})

	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": 10, "creative": -5}, false, true)
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": -70, "creative": 0}, got.Wallets)
	s.Equal(map[string]bool{"primary": true, "creative": true}, got.Modified)
}

func (s *ServiceSuite) TestDeltasClampedToRange() {
	got, err := s.service.Apply(s.ctx, steve, map[string]int64{"primary": 1_000_000}, false, true)
	s.Require().NoError(err)
	s.Equal(int64(130), got.Wallets["primary"])
}

func (s *ServiceSuite) TestMissingPlayer() {
	_, err := s.service.Apply(s.ctx, uuid.New(), map[string]int64{"primary": 1}, false, true)
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WalletUpdates.WithLabelValues("not_found")))
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) RunTransaction(context.Context, storage.TxOptions, func(context.Context, storage.Tx) error) error {
	return errors.New("connection reset")
}

func (s *ServiceSuite) TestStoreFailureIsTransient() {
	service := New(failingStorage{s.storage}, logutil.NopLogger(), s.metrics, 0)
	_, err := service.Apply(s.ctx, steve, map[string]int64{"primary": 1}, false, true)
	s.ErrorIs(err, model.ErrTransient)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WalletUpdates.WithLabelValues("failed")))
}

// Update tests

func (s *ServiceSuite) TestUpdateSharedDelta() {
	got, err := s.service.Update(s.ctx, UpdateRequest{
		UUID:    steve.String(),
		Wallets: []any{"primary", "survival"},
		Delta:   json.Number("5"),
	})
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": 35, "survival": 5}, got.Wallets)
}

func (s *ServiceSuite) TestUpdateValidation() {
	cases := []struct {
		req     UpdateRequest
		message string
	}{
		{UpdateRequest{UUID: steve.String(), Delta: json.Number("1")}, "String or String[] 'wallets' is required"},
		{UpdateRequest{UUID: steve.String(), Wallets: "primary"}, "Integer 'delta' is required"},
		{UpdateRequest{UUID: steve.String(), Wallets: "primary", Delta: json.Number("1.5")}, "Key 'delta' must be an integer"},
		{UpdateRequest{UUID: steve.String(), Wallets: "primary", Delta: json.Number("0")}, "Key 'delta' cannot be zero"},
		{UpdateRequest{UUID: "nope", Wallets: "primary", Delta: json.Number("1")}, "Key 'uuid' is not a valid UUID, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"},
		{UpdateRequest{UUID: steve.String(), Wallets: []any{}, Delta: json.Number("1")}, "Array 'wallets' is empty"},
		{UpdateRequest{UUID: steve.String(), Wallets: []any{"gems"}, Delta: json.Number("1")}, "Array 'wallets' contains invalid wallets"},
		{UpdateRequest{UUID: steve.String(), Wallets: "gems", Delta: json.Number("1")}, "Key 'wallets' is an invalid wallet"},
	}
	for _, tc := range cases {
		_, err := s.service.Update(s.ctx, tc.req)
		s.Require().Error(err)
		s.Equal(tc.message, err.Error())
	}
}

func (s *ServiceSuite) TestUpdateNullUUID() {
	_, err := s.service.Update(s.ctx, UpdateRequest{UUID: identity.NullUUIDString, Wallets: "primary", Delta: json.Number("1")})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Get tests

func (s *ServiceSuite) TestGetOmitsUnsetWallets() {
	got, err := s.service.Get(s.ctx, steve.String(), []any{"primary", "creative"})
	s.Require().NoError(err)
	s.Equal(map[string]int64{"primary": 30}, got)
}

func (s *ServiceSuite) TestGetMissingPlayer() {
	_, err := s.service.Get(s.ctx, uuid.New().String(), "primary")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Properties

func (s *ServiceSuite) TestRollbackProperties() {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := []string{"primary", "creative", "survival"}
	start := gen.SliceOfN(3, gen.Int64Range(-150, 150))
	deltas := gen.SliceOfN(3, gen.Int64Range(-150, 150))

	setup := func(balances, raw []int64) (before, clamped, requested map[string]int64) {
		before = make(map[string]int64)
		clamped = make(map[string]int64)
		requested = make(map[string]int64)
		for i, name := range names {
			before[name] = balances[i]
			if raw[i] != 0 {
				requested[name] = raw[i]
				clamped[name] = model.WalletRanges[name].Clamp(raw[i])
			}
		}
		s.seed(before)
		return before, clamped, requested
	}
	drivenNegative := func(before, clamped map[string]int64, name string) bool {
		d := clamped[name]
		return d < 0 && before[name]+d < 0
	}

	properties.Property("fail-if-partial leaves every wallet untouched on any rollback", prop.ForAll(
		func(balances, raw []int64) bool {
			before, clamped, requested := setup(balances, raw)
			if len(requested) == 0 {
				return true
			}
			got, err := s.service.Apply(s.ctx, steve, requested, false, true)
			if err != nil {
				return false
			}
			aborted := false
			for name := range clamped {
				aborted = aborted || drivenNegative(before, clamped, name)
			}
			after := s.stored()
			for name := range clamped {
				want := before[name] + clamped[name]
				if aborted {
					want = before[name]
				}
				if after[name] != want || got.Wallets[name] != want || got.Modified[name] == aborted {
					return false
				}
			}
			return true
		},
		start, deltas,
	))

	properties.Property("partial rollback reverts only wallets driven negative", prop.ForAll(
		func(balances, raw []int64) bool {
			before, clamped, requested := setup(balances, raw)
			if len(requested) == 0 {
				return true
			}
			got, err := s.service.Apply(s.ctx, steve, requested, false, false)
			if err != nil {
				return false
			}
			after := s.stored()
			for name := range clamped {
				reverted := drivenNegative(before, clamped, name)
				want := before[name] + clamped[name]
				if reverted {
					want = before[name]
				}
				if after[name] != want || got.Wallets[name] != want || got.Modified[name] == reverted {
					return false
				}
			}
			return true
		},
		start, deltas,
	))

	properties.TestingRun(s.T())
}
