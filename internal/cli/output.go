package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/palacemc/palace-web/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error":   1,
			"message": err.Error(),
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case TokenResult:
		o.printToken(v)
	case Player:
		o.printPlayer(v)
	case PlayerList:
		o.printPlayerList(v)
	case PlayerCount:
		o.printPlayerCount(v)
	case Wallets:
		o.printBalances(v.Wallets, nil)
	case WalletUpdate:
		o.printBalances(v.Wallets, v.Modified)
	case ConnectionValue:
		o.printConnectionValue(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// TokenResult is an issued API token
type TokenResult struct {
	Token   string `json:"token"`
	Refresh int64  `json:"refresh"`
}

// NameStyle response type
type NameStyle struct {
	Color  string `json:"color,omitempty"`
	MColor string `json:"mColor,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
}

// Player response type (matches API)
type Player struct {
	UUID       string     `json:"uuid"`
	FirstLogin int64      `json:"firstLogin"`
	Name       string     `json:"name"`
	NameStyle  *NameStyle `json:"nameStyle,omitempty"`
}

// PlayerList response type
type PlayerList struct {
	Count   int      `json:"count"`
	Players []Player `json:"players"`
}

// PlayerCount response type
type PlayerCount struct {
	Time   int64 `json:"time"`
	Count  int64 `json:"count"`
	Recent int64 `json:"recent"`
	Week   int64 `json:"week"`
	Month  int64 `json:"month"`
}

// Wallets response type
type Wallets struct {
	Wallets map[string]int64 `json:"wallets"`
}

// WalletUpdate response type
type WalletUpdate struct {
	Wallets  map[string]int64 `json:"wallets"`
	Modified map[string]bool  `json:"modified"`
}

// ConnectionValue response type
type ConnectionValue struct {
	Value *string `json:"value"`
	TTL   int64   `json:"ttl"`
}

func (o *Output) printToken(t TokenResult) {
	fmt.Fprintf(o.w, "Token: %s\n", t.Token)
	fmt.Fprintf(o.w, "Refresh before: %s\n", time.UnixMilli(t.Refresh).UTC().Format(time.RFC3339))
}

func (o *Output) printPlayer(p Player) {
	if p.UUID == "" {
		fmt.Fprintln(o.w, "Player not found")
		return
	}
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Name, p.UUID)
	fmt.Fprintf(o.w, "First login: %s\n", time.UnixMilli(p.FirstLogin).UTC().Format(time.RFC3339))
	if p.NameStyle != nil && p.NameStyle.Color != "" {
		fmt.Fprintf(o.w, "Color: %s\n", p.NameStyle.Color)
	}
}

func (o *Output) printPlayerList(l PlayerList) {
	fmt.Fprintf(o.w, "Players (%d):\n", l.Count)
	for _, p := range l.Players {
		fmt.Fprintf(o.w, "  - %s (%s)\n", p.Name, p.UUID)
	}
}

func (o *Output) printPlayerCount(c PlayerCount) {
	fmt.Fprintf(o.w, "Players: %d\n", c.Count)
	fmt.Fprintf(o.w, "Last day: %d\n", c.Recent)
	fmt.Fprintf(o.w, "Last week: %d\n", c.Week)
	fmt.Fprintf(o.w, "Last month: %d\n", c.Month)
}

func (o *Output) printBalances(balances map[string]int64, modified map[string]bool) {
	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		line := fmt.Sprintf("%s: %d", name, balances[name])
		if modified != nil && !modified[name] {
			line += " (unchanged)"
		}
		fmt.Fprintln(o.w, line)
	}
}

func (o *Output) printConnectionValue(v ConnectionValue) {
	if v.Value == nil {
		fmt.Fprintln(o.w, "Value: <unset>")
		return
	}
	fmt.Fprintf(o.w, "Value: %s\n", strings.TrimSpace(*v.Value))
	if v.TTL == model.InstantSecondMax {
		fmt.Fprintln(o.w, "Expires: never")
		return
	}
	fmt.Fprintf(o.w, "Expires: %s\n", time.Unix(v.TTL, 0).UTC().Format(time.RFC3339))
}
