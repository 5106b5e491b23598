// Package identity converts between the human-readable identifiers used on
// the wire and the compact binary identifiers used for storage and indexing.
//
// Parse failures never panic or return errors. They yield the all-zero
// sentinel of the respective type, and callers must check for it with
// IsNullUUID / IsNullObjectID before treating a value as legitimate.
package identity

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NullUUIDString is the canonical form of the all-zero player identifier.
// It is a legitimate key for server-wide statistics.
const NullUUIDString = "00000000-0000-0000-0000-000000000000"

// NullObjectIDString is the hex form of the all-zero ObjectId.
const NullObjectIDString = "000000000000000000000000"

// NullUUID is the all-zero identifier returned when a UUID cannot be parsed.
var NullUUID = uuid.Nil

// NullObjectID is the all-zero ObjectId returned when an ObjectId cannot be parsed.
var NullObjectID = primitive.NilObjectID

// ToBinaryID parses a dashed (36 char) or undashed (32 char) hex UUID.
// Any other input returns NullUUID.
func ToBinaryID(s string) uuid.UUID {
	if len(s) != 36 && len(s) != 32 {
		return NullUUID
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return NullUUID
	}
	return id
}

// ToCanonicalID formats 16 raw bytes as a lowercase dashed UUID, or returns
// the empty string when b is not exactly 16 bytes.
func ToCanonicalID(b []byte) string {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return ""
	}
	return id.String()
}

// IsNullUUID reports whether id is the all-zero sentinel.
func IsNullUUID(id uuid.UUID) bool {
	return id == NullUUID
}

// EqualUUID compares a string UUID against a binary one on the raw bytes,
// so case and dashes in s do not matter.
func EqualUUID(s string, id uuid.UUID) bool {
	parsed := ToBinaryID(s)
	if IsNullUUID(parsed) {
		return false
	}
	return bytes.Equal(parsed[:], id[:])
}

// ToObjectID parses a 24 character hex ObjectId, returning NullObjectID on failure.
func ToObjectID(s string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return NullObjectID
	}
	return id
}

// IsNullObjectID reports whether id is the all-zero sentinel.
func IsNullObjectID(id primitive.ObjectID) bool {
	return id.IsZero()
}

// NewObjectID generates a fresh ObjectId stamped with t. The process-unique
// and counter bytes come from the driver so ids stay unique within a second.
func NewObjectID(t time.Time) primitive.ObjectID {
	id := primitive.NewObjectID()
	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	return id
}
