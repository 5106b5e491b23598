package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini  *miniredis.Miniredis
	redis *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.MaxRetries = 100
	cfg.LogRetention = 3

	s.redis = NewWithClient(client, cfg)
	s.Storage = s.redis
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

var carol = uuid.MustParse("33333333-3333-4333-8333-333333333333")

func (s *StorageSuite) TestLegacyDocumentRewrittenInPlace() {
	raw := fmt.Sprintf(`{"uuid":%q,"name":"Carol","firstLogin":1,"lastLogout":null,`+
		`"connections":[{"type":"discord","content":"123456789012345678","ttl":"%d"}]}`,
		carol, model.InstantSecondMax)
	s.Require().NoError(s.Storage.PutPlayerDocument(s.Ctx, []byte(raw)))

	stored, err := s.mini.Get(playerKey(carol))
	s.Require().NoError(err)
	s.Equal(raw, stored, "documents are stored as given")

	_, err = s.Storage.GetPlayer(s.Ctx, carol)
	s.Require().NoError(err)

	stored, err = s.mini.Get(playerKey(carol))
	s.Require().NoError(err)
	s.True(strings.Contains(stored, `"connections":{"discord":`), stored)
}

func (s *StorageSuite) TestIndexesFollowDocument() {
	_, _, err := s.Storage.UpsertPlayer(s.Ctx, carol, func(p *model.Player, created bool) error {
		p.Name = "Carol"
		return nil
	})
	s.Require().NoError(err)
	s.True(s.mini.Exists(nameIndexKey("Carol")))

	_, err = s.Storage.UpdatePlayer(s.Ctx, carol, func(p *model.Player) error {
		p.Name = "Caroline"
		return nil
	})
	s.Require().NoError(err)
	s.False(s.mini.Exists(nameIndexKey("Carol")), "emptied sets are removed")

	members, err := s.mini.Members(nameIndexKey("Caroline"))
	s.Require().NoError(err)
	s.Equal([]string{carol.String()}, members)
}

func (s *StorageSuite) TestConcurrentUpdatesAllLand() {
	_, _, err := s.Storage.UpsertPlayer(s.Ctx, carol, func(p *model.Player, created bool) error {
		p.Name = "Carol"
		return nil
	})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Storage.RunTransaction(s.Ctx, storage.TxOptions{}, func(ctx context.Context, tx storage.Tx) error {
				_, err := tx.IncrementWallets(ctx, carol, map[string]int64{"primary": 1})
				return err
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	p, err := s.Storage.GetPlayer(s.Ctx, carol)
	s.Require().NoError(err)
	s.Equal(int64(10), p.Wallet["primary"])
}

func (s *StorageSuite) TestLogRetention() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.Storage.SaveLog(s.Ctx, &model.LogEntry{Time: int64(i), Message: fmt.Sprint(i)}))
	}

	entries, err := s.mini.List(logsKey())
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Contains(entries[0], `"message":"4"`, "newest first")
}

func (s *StorageSuite) TestStatsStoredAsHash() {
	_, err := s.Storage.IncrementStats(s.Ctx, carol, map[string]int64{"playtime.all": 3})
	s.Require().NoError(err)
	s.Equal("3", s.mini.HGet(statsKey(carol), "playtime.all"))
}
