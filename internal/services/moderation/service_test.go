package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/palacemc/palace-web/internal/dependencies/mocks"
	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage/memory"
	"github.com/palacemc/palace-web/internal/testutil"
)

const steve = "8667ba71-b85a-4004-af54-457a9734eed7"

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	_, _, err := s.storage.UpsertPlayer(s.ctx, uuid.MustParse(steve), func(p *model.Player, created bool) error {
		p.Name = "Steve"
		return nil
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestMuteLifecycle() {
	until := s.clock.Now().Add(time.Hour).UnixMilli()

	result, err := s.service.Mute(s.ctx, steve, json.Number(fmt.Sprint(until)))
	s.Require().NoError(err)
	s.False(result.Queried)

	result, err = s.service.Mute(s.ctx, steve, MuteQuery)
	s.Require().NoError(err)
	s.True(result.Queried)
	s.Require().NotNil(result.Until)
	s.Equal(until, *result.Until)

	_, err = s.service.Mute(s.ctx, steve, nil)
	s.Require().NoError(err)

	result, err = s.service.Mute(s.ctx, steve, MuteQuery)
	s.Require().NoError(err)
	s.Nil(result.Until)
}

func (s *ServiceSuite) TestMutePastTimeAccepted() {
	past := s.clock.Now().Add(-24 * time.Hour).UnixMilli()
	_, err := s.service.Mute(s.ctx, steve, json.Number(fmt.Sprint(past)))
	s.NoError(err)
}

func (s *ServiceSuite) TestMuteValidation() {
	_, err := s.service.Mute(s.ctx, steve, "later")
	s.EqualError(err, "Key 'time' must be an integer, '?', or unset")

	_, err = s.service.Mute(s.ctx, steve, true)
	s.EqualError(err, "Key 'time' must be an integer or unset")

	_, err = s.service.Mute(s.ctx, steve, json.Number("60"))
	s.EqualError(err, "Key 'time' is not a reasonable time, must be in milliseconds")

	_, err = s.service.Mute(s.ctx, "steve", nil)
	s.EqualError(err, "Key 'uuid' is not a valid UUID, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
}

func (s *ServiceSuite) TestMuteUnknownPlayer() {
	_, err := s.service.Mute(s.ctx, uuid.NewString(), MuteQuery)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.service.Mute(s.ctx, identity.NullUUIDString, nil)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestSaveLog() {
	s.Require().NoError(s.service.SaveLog(s.ctx, strings.Repeat("m", 1004), strings.Repeat("e", 1003)))
	s.Require().NoError(s.service.SaveLog(s.ctx, "plain", nil))

	logs := s.storage.Logs()
	s.Require().Len(logs, 2)
	s.Equal(strings.Repeat("m", 1000)+"...", logs[0].Message)
	s.Equal(strings.Repeat("e", 1003), logs[0].Exception)
	s.Equal(s.clock.Now().UnixMilli(), logs[0].Time)
	s.Empty(logs[1].Exception)

	err := s.service.SaveLog(s.ctx, "x", json.Number("1"))
	s.EqualError(err, "Key 'exception' must be a non-empty string or unset")
}
