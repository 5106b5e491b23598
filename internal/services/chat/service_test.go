package chat

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
)

const (
	steve = "8667ba71-b85a-4004-af54-457a9734eed7"
	alex  = "ec561538-f3fd-461d-aff5-086b22154bce"
)

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
	s.service = New(s.storage, s.clock)
	s.ctx = context.Background()
}

func (s *ServiceSuite) now() int64 {
	return s.clock.Now().UnixMilli()
}

func (s *ServiceSuite) global(message string) SaveRequest {
	return SaveRequest{
		UUID:      steve,
		Original:  message,
		Formatted: "<Steve> " + message,
		Type:      "global",
		Server:    "hub",
	}
}

func (s *ServiceSuite) save(req SaveRequest) {
	s.Require().NoError(s.service.Save(s.ctx, req))
}

func (s *ServiceSuite) history(chatType any) *model.ChatPage {
	page, err := s.service.Get(s.ctx, steve, nil, nil, chatType)
	s.Require().NoError(err)
	return page
}

func (s *ServiceSuite) TestSaveAndGet() {
	s.save(s.global("hello"))

	page := s.history(nil)
	s.Equal(int64(1), page.Total)
	s.Equal(1, page.Count)
	s.Equal(model.ChatView{
		Time:    s.now(),
		UUID:    steve,
		Message: "<Steve> hello",
		Server:  "hub",
		Type:    "global",
	}, page.Chats[0])
}

func (s *ServiceSuite) TestTimeClampedToOneSecond() {
	req := s.global("early")
	req.Time = json.Number(fmt.Sprint(s.now() - 60_000))
	s.save(req)

	req = s.global("late")
	req.Time = json.Number(fmt.Sprint(s.now() + 60_000))
	s.save(req)

	page, err := s.service.Get(s.ctx, steve, json.Number(fmt.Sprint(s.now()+model.ChatTimeSkewMs)), nil, nil)
	s.Require().NoError(err)
	s.Require().Len(page.Chats, 2)
	s.Equal(s.now()+1000, page.Chats[0].Time)
	s.Equal(s.now()-1000, page.Chats[1].Time)
}

func (s *ServiceSuite) TestMessagesTruncated() {
	req := s.global(strings.Repeat("a", 304))
	req.Formatted = strings.Repeat("b", 303)
	s.save(req)

	stored := s.history(nil).Chats[0]
	s.Equal(strings.Repeat("b", 303), stored.Message)

	chats, _, err := s.storage.QueryChats(s.ctx, model.ChatQuery{UUID: uuid.MustParse(steve), Since: s.now(), Limit: 1})
	s.Require().NoError(err)
	s.Equal(strings.Repeat("a", 300)+"...", chats[0].Message)
}

func (s *ServiceSuite) TestPrivateMessage() {
	req := s.global("psst")
	req.Type = TypePrivate
	req.Receivers = alex
	s.save(req)

	v := s.history(nil).Chats[0]
	s.Equal(alex, v.To)
	s.Empty(v.Server)
	s.Empty(v.Type)
	s.Empty(v.Receivers)
}

func (s *ServiceSuite) TestGroupMessage() {
	req := s.global("team")
	req.Type = "group_party"
	req.Receivers = []any{alex, steve}
	s.save(req)

	v := s.history(nil).Chats[0]
	s.Equal("group_party", v.Type)
	s.Empty(v.Server)
	s.Equal([]string{alex, steve}, v.Receivers)
}

func (s *ServiceSuite) TestSingleReceiverBecomesList() {
	req := s.global("staff")
	req.Type = "staff"
	req.Receivers = alex
	s.save(req)

	v := s.history(nil).Chats[0]
	s.Equal([]string{alex}, v.Receivers)
	s.Equal("hub", v.Server)
}

func (s *ServiceSuite) TestUnsentHidden() {
	req := s.global("blocked")
	req.Sent = false
	s.save(req)
	s.save(s.global("visible"))

	page := s.history(nil)
	s.Equal(int64(1), page.Total)
	s.Equal("<Steve> visible", page.Chats[0].Message)
}

func (s *ServiceSuite) TestTypeFilters() {
	s.save(s.global("one"))
	staff := s.global("two")
	staff.Type = "staff"
	s.save(staff)

	s.Equal(int64(1), s.history("staff").Total)
	s.Equal("staff", s.history("staff").Chats[0].Type)
	s.Equal(int64(1), s.history("!staff").Total)
	s.Equal("global", s.history("!staff").Chats[0].Type)
	s.Equal(int64(2), s.history("").Total)
}

func (s *ServiceSuite) TestPaging() {
	for i := range 15 {
		req := s.global(fmt.Sprint(i))
		s.save(req)
		s.clock.Advance(time.Second)
	}

	first := s.history(nil)
	s.Equal(int64(15), first.Total)
	s.Equal(model.ChatPageSize, first.Count)
	s.Equal("<Steve> 14", first.Chats[0].Message)

	second, err := s.service.Get(s.ctx, steve, nil, json.Number("10"), nil)
	s.Require().NoError(err)
	s.Equal(5, second.Count)
	s.Equal("<Steve> 4", second.Chats[0].Message)
}

func (s *ServiceSuite) TestSaveValidation() {
	cases := []struct {
		name    string
		edit    func(*SaveRequest)
		message string
	}{
		{"time", func(r *SaveRequest) { r.Time = "now" }, "Key 'time' must be an integer or unset"},
		{"pm needs receiver", func(r *SaveRequest) { r.Type = TypePrivate }, "Key 'receivers' is required for 'type' = 'pm', must be a non-empty string"},
		{"group needs receivers", func(r *SaveRequest) { r.Type = "group" }, "Key 'receivers' is required for 'type' = 'group', must be a string array"},
		{"pm with array", func(r *SaveRequest) { r.Type = TypePrivate; r.Receivers = []any{alex} }, "Key 'receivers' is expected to be a string for 'type' = 'pm'"},
		{"group with string", func(r *SaveRequest) { r.Type = "group"; r.Receivers = alex }, "Key 'receivers' is expected to be a string array for 'type' = 'group'"},
		{"bad array entry", func(r *SaveRequest) { r.Receivers = []any{"alex"} }, "Array 'receivers' contains an invalid UUID string, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"},
		{"null array entry", func(r *SaveRequest) { r.Receivers = []any{identity.NullUUIDString} }, "Array 'receivers' failed to parse a UUID string, it is invalid"},
		{"receiver type", func(r *SaveRequest) { r.Receivers = json.Number("1") }, "Key 'receivers' must be a non-empty string, string array, or unset"},
		{"receiver format", func(r *SaveRequest) { r.Receivers = "alex" }, "Key 'receivers' is not a valid UUID, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"},
		{"uuid", func(r *SaveRequest) { r.UUID = identity.NullUUIDString }, "Key 'uuid' could not be parsed, it is invalid"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.global("x")
			tc.edit(&req)
			s.EqualError(s.service.Save(s.ctx, req), tc.message)
		})
	}
}

func (s *ServiceSuite) TestGetValidation() {
	_, err := s.service.Get(s.ctx, steve, "yesterday", nil, nil)
	s.EqualError(err, "Key 'since' must be an integer or unset")

	_, err = s.service.Get(s.ctx, steve, json.Number("1000"), nil, nil)
	s.EqualError(err, "Key 'since' is not a reasonable time, must be in milliseconds")

	_, err = s.service.Get(s.ctx, steve, nil, json.Number("101"), nil)
	s.EqualError(err, "Key 'offset' must be between 0-100")

	_, err = s.service.Get(s.ctx, steve, nil, json.Number("-1"), nil)
	s.EqualError(err, "Key 'offset' must be between 0-100")

	_, err = s.service.Get(s.ctx, steve, nil, true, nil)
	s.EqualError(err, "Key 'offset' must be an integer or unset")

	_, err = s.service.Get(s.ctx, "steve", nil, nil, nil)
	s.EqualError(err, "Key 'uuid' is not a valid UUID, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
}
