package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/palacemc/palace-web/internal/model"
)

// ErrRollback is returned from a transaction function to discard every
// staged write without reporting a failure
var ErrRollback = errors.New("transaction rolled back")

// PlayerMutator edits a player document in place. Returning an error
// discards the edit.
type PlayerMutator func(p *model.Player) error

// PlayerUpserter edits a player document that may have just been created.
// created is true when no document existed and p is zero apart from its UUID.
type PlayerUpserter func(p *model.Player, created bool) error

// TxOptions bound a multi-document transaction
type TxOptions struct {
	// MaxCommitTime bounds the whole transaction; exceeding it fails with model.ErrTransient
	MaxCommitTime time.Duration
}

// Tx stages writes inside RunTransaction. Reads observe earlier staged writes.
type Tx interface {
	// IncrementWallets adds deltas to the player's wallets and returns the
	// post-increment balance of every touched wallet
	IncrementWallets(ctx context.Context, id uuid.UUID, deltas map[string]int64) (map[string]int64, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	GetPlayer(ctx context.Context, id uuid.UUID) (*model.Player, error)
	FindPlayersByName(ctx context.Context, name string) ([]*model.Player, error)
	// FindPlayersByConnection returns every player whose stored content for
	// provider equals content, regardless of expiry
	FindPlayersByConnection(ctx context.Context, provider, content string) ([]*model.Player, error)
	// UpdatePlayer atomically applies mutate and returns the post-image. It
	// never creates a player.
	UpdatePlayer(ctx context.Context, id uuid.UUID, mutate PlayerMutator) (*model.Player, error)
	// UpsertPlayer atomically applies mutate, creating the player when absent.
	// prev is nil when the player was created.
	UpsertPlayer(ctx context.Context, id uuid.UUID, mutate PlayerUpserter) (prev, next *model.Player, err error)
	ListPlayers(ctx context.Context) ([]*model.Player, error)
	CountPlayers(ctx context.Context) (int64, error)
	// PutPlayerDocument stores a raw player document as-is, including the
	// legacy connection shape
	PutPlayerDocument(ctx context.Context, raw []byte) error

	// Transactions
	RunTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx Tx) error) error

	// Stats operations
	GetStats(ctx context.Context, id uuid.UUID) (*model.Stats, error)
	// IncrementStats adds deltas, creating the stats document when absent
	IncrementStats(ctx context.Context, id uuid.UUID, deltas map[string]int64) (*model.Stats, error)

	// Chat operations
	SaveChat(ctx context.Context, chat *model.Chat) error
	// QueryChats returns a page of matching chats, newest first, and the total match count
	QueryChats(ctx context.Context, q model.ChatQuery) ([]*model.Chat, int64, error)

	// Mail operations
	SaveMail(ctx context.Context, mail *model.Mail) error
	// QueryMail returns a page of the mailbox, newest first, the total and the unread count
	QueryMail(ctx context.Context, q model.MailQuery) (mail []*model.Mail, total, unread int64, err error)
	// UpdateMail atomically applies mutate to mail id addressed to to
	UpdateMail(ctx context.Context, id primitive.ObjectID, to uuid.UUID, mutate func(m *model.Mail) error) (*model.Mail, error)

	// Log operations
	SaveLog(ctx context.Context, entry *model.LogEntry) error

	// Guild operations
	GetGuild(ctx context.Context, guild string) (*model.Guild, error)
	SaveGuild(ctx context.Context, guild *model.Guild) error
	UpdateGuild(ctx context.Context, guild string, mutate func(g *model.Guild) error) (*model.Guild, error)
	ListGuilds(ctx context.Context) ([]*model.Guild, error)

	Ping(ctx context.Context) error
	Close() error
}
