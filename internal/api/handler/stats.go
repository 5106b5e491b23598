package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/api/response"
	"github.com/palacemc/palace-web/internal/services/stats"
	"github.com/palacemc/palace-web/internal/services/wallet"
)

// StatsHandler handles stat and wallet endpoints. "stat" and "stats" are
// aliases, as are "wallet" and "wallets"; the singular wins when not null.
type StatsHandler struct {
	stats   *stats.Service
	wallets *wallet.Service
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats *stats.Service, wallets *wallet.Service) *StatsHandler {
	return &StatsHandler{
		stats:   stats,
		wallets: wallets,
	}
}

func (h *StatsHandler) getStats(w http.ResponseWriter, r *http.Request, key any) {
	id, err := request.FromContext(r.Context()).String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	values, err := h.stats.Get(r.Context(), id, key)
	respond(w, response.Stats{Stats: values}, err)
}

// PublicStats handles POST /api/player/getStats
func (h *StatsHandler) PublicStats(w http.ResponseWriter, r *http.Request) {
	h.getStats(w, r, request.FromContext(r.Context()).Get("get"))
}

// Stats handles POST /api/player/stat/get
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.getStats(w, r, request.FromContext(r.Context()).Or("stat", "stats"))
}

// UpdateStats handles POST /api/player/stat
func (h *StatsHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	values, err := h.stats.Update(r.Context(), id, f.Or("stat", "stats"), f.Get("delta"))
	respond(w, response.Stats{Stats: values}, err)
}

// Wallets handles POST /api/player/wallet/get
func (h *StatsHandler) Wallets(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	balances, err := h.wallets.Get(r.Context(), id, f.Or("wallet", "wallets"))
	respond(w, response.Wallets{Wallets: balances}, err)
}

// UpdateWallets handles POST /api/player/wallet
func (h *StatsHandler) UpdateWallets(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.wallets.Update(r.Context(), wallet.UpdateRequest{
		UUID:          id,
		Wallets:       f.Or("wallet", "wallets"),
		Delta:         f.Get("delta"),
		AllowNegative: f.Flag("allowNegative", false),
		FailIfPartial: f.Flag("failIfPartial", true),
	})
	respond(w, result, err)
}
