package model

// Range is an inclusive [Min, Max] bound on a single update
type Range struct {
	Min int64
	Max int64
}

// Clamp bounds v into the range
func (r Range) Clamp(v int64) int64 {
	return min(max(v, r.Min), r.Max)
}

// WalletRanges are the wallets players have and the delta each accepts per update
var WalletRanges = map[string]Range{
	"primary":  {Min: -100, Max: 100},
	"creative": {Min: -100, Max: 100},
	"survival": {Min: -100, Max: 100},
}

// IsWallet reports whether name is a known wallet
func IsWallet(name string) bool {
	_, ok := WalletRanges[name]
	return ok
}

// WalletUpdate is the result of a wallet transaction. Modified is false for
// every wallet that was rolled back or left untouched by an abort.
type WalletUpdate struct {
	Wallets  map[string]int64 `json:"wallets"`
	Modified map[string]bool  `json:"modified"`
}

// WalletOutcome classifies how a wallet transaction ended
type WalletOutcome string

const (
	WalletCommitted  WalletOutcome = "committed"
	WalletRolledBack WalletOutcome = "rolled_back"
	WalletAborted    WalletOutcome = "aborted"
	WalletNotFound   WalletOutcome = "not_found"
	WalletFailed     WalletOutcome = "failed"
)
