package httpserver

import (
	"net/http"
	"sort"

	"github.com/goccy/go-json"
	"github.com/optionhouse/optionhouse/internal/registry"
	"go.uber.org/zap"
)

// AuctionHandler serves read-only snapshots of the active auctions.
type AuctionHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewAuctionHandler creates the handler.
func NewAuctionHandler(reg *registry.Registry, logger *zap.Logger) *AuctionHandler {
	return &AuctionHandler{registry: reg, logger: logger}
}

// AuctionsResponse is the /api/auctions response body.
type AuctionsResponse struct {
	Count    int                 `json:"count"`
	Auctions []registry.Snapshot `json:"auctions"`
}

// HandleAuctions returns a snapshot of every active auction, oldest
// first.
func (h *AuctionHandler) HandleAuctions(w http.ResponseWriter, r *http.Request) {
	active := h.registry.ActiveAuctions()

	snapshots := make([]registry.Snapshot, 0, len(active))
	for _, a := range active {
		snapshots = append(snapshots, a.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].OpenedAt.Before(snapshots[j].OpenedAt)
	})

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(AuctionsResponse{
		Count:    len(snapshots),
		Auctions: snapshots,
	})
	if err != nil {
		h.logger.Error("auctions-encode-failed", zap.Error(err))
	}
}
