package redis

import (
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Key prefix for all palace data
const keyPrefix = "palace"

// Key generation functions for each entity type

// playerKey returns the Redis key for a player document
func playerKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playersIndexKey returns the Redis key for the SET of all player ids
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// nameIndexKey returns the Redis key for the SET of player ids using a name
func nameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:name:%s", keyPrefix, name)
}

// connectionIndexKey returns the Redis key for the SET of player ids whose
// provider content equals content
func connectionIndexKey(provider, content string) string {
	return fmt.Sprintf("%s:idx:connection:%s:%s", keyPrefix, provider, content)
}

// statsKey returns the Redis key for the HASH of a player's stats
func statsKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:stats:%s", keyPrefix, id)
}

// chatKey returns the Redis key for the ZSET of a player's chat, scored by time
func chatKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:chat:%s", keyPrefix, id)
}

// mailKey returns the Redis key for a mail document
func mailKey(id primitive.ObjectID) string {
	return fmt.Sprintf("%s:mail:%s", keyPrefix, id.Hex())
}

// mailboxKey returns the Redis key for the ZSET of mail ids in a box, scored by time
func mailboxKey(box string, id uuid.UUID) string {
	return fmt.Sprintf("%s:mailbox:%s:%s", keyPrefix, box, id)
}

// logsKey returns the Redis key for the LIST of operator logs, newest first
func logsKey() string {
	return fmt.Sprintf("%s:logs", keyPrefix)
}

// guildKey returns the Redis key for a guild document
func guildKey(guild string) string {
	return fmt.Sprintf("%s:guild:%s", keyPrefix, guild)
}

// guildsIndexKey returns the Redis key for the SET of guild ids
func guildsIndexKey() string {
	return fmt.Sprintf("%s:idx:guilds", keyPrefix)
}
