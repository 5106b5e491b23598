// Package validation classifies and coerces untrusted input. Predicates never
// fail loudly; the helpers that produce caller-facing errors return *Error,
// whose message is safe to report verbatim.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/palacemc/palace-web/internal/identity"
)

// Error is a caller-facing validation failure
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds a validation Error
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsError reports whether err is, or wraps, a validation Error
func IsError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var (
	uuidPattern      = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	objectIDPattern  = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	snowflakePattern = regexp.MustCompile(`^-?[0-9]{7,20}$`)
	hexColorPattern  = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)
	customKeyPattern = regexp.MustCompile(`^[a-z_]{4,24}$`)
	whitespace       = regexp.MustCompile(`\s`)
)

// Bounds of a plausible epoch-millisecond timestamp, exclusive
const (
	EarliestTime int64 = 1569587100000
	LatestTime   int64 = 1993494600000
)

// IsUUID reports whether s is a dashed hex UUID
func IsUUID(s string) bool { return uuidPattern.MatchString(s) }

// IsObjectID reports whether s is a 24 character hex ObjectId
func IsObjectID(s string) bool { return objectIDPattern.MatchString(s) }

// IsSnowflake reports whether s looks like a Discord snowflake. Negative
// values are accepted in case ids ever overflow a signed 64-bit integer.
func IsSnowflake(s string) bool { return snowflakePattern.MatchString(s) }

// IsHexColor reports whether s is a six digit hex color, optionally prefixed by '#'
func IsHexColor(s string) bool { return hexColorPattern.MatchString(s) }

// IsUsername reports whether s is a valid Minecraft username
func IsUsername(s string) bool { return usernamePattern.MatchString(s) }

// IsCustomKey reports whether s may name a custom player setting
func IsCustomKey(s string) bool { return customKeyPattern.MatchString(s) }

// HasWhitespace reports whether s contains any whitespace
func HasWhitespace(s string) bool { return whitespace.MatchString(s) }

// IsReasonableTime reports whether ms is a plausible epoch-millisecond time
func IsReasonableTime(ms int64) bool {
	return ms > EarliestTime && ms < LatestTime
}

// ParseUUID checks the format of a UUID field and decodes it, rejecting the
// null identifier.
func ParseUUID(key, s string) (uuid.UUID, error) {
	if err := FormatUUID(key, s); err != nil {
		return identity.NullUUID, err
	}
	id := identity.ToBinaryID(s)
	if identity.IsNullUUID(id) {
		return identity.NullUUID, Errorf("Key '%s' could not be parsed, it is invalid", key)
	}
	return id, nil
}

// FormatUUID checks that a UUID field is a dashed hex UUID
func FormatUUID(key, s string) error {
	if !IsUUID(s) {
		return Errorf("Key '%s' is not a valid UUID, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx", key)
	}
	return nil
}

// Truncate cuts s to limit runes followed by "..." when it is longer than above
func Truncate(s string, limit, above int) string {
	r := []rune(s)
	if len(r) > above {
		return string(r[:limit]) + "..."
	}
	return s
}

// Cut hard cuts s to at most limit runes
func Cut(s string, limit int) string {
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit])
	}
	return s
}

// Length counts the runes of s
func Length(s string) int {
	return len([]rune(s))
}
