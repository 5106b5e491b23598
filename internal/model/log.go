package model

// Log limits
const (
	LogLimit         = 1000
	LogTruncateAbove = 1003
)

// LogEntry is an operator log line saved by a game server
type LogEntry struct {
	Time      int64  `json:"time"`
	Message   string `json:"message"`
	Exception string `json:"exception,omitempty"`
}
