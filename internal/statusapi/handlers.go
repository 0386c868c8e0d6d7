// Package statusapi wires up a minimal Gin router that reports node
// diagnostics on web_service_http_host/port (spec §9). Full search UI
// is out of scope; this is the one surface kept for operability.
package statusapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sniffdognode/internal/searchresult"
)

// Node is the subset of *node.Node the status API reports on.
type Node interface {
	ID() string
}

// peerLister is the subset of *peerdir.Directory needed for a peer
// count.
type peerLister interface {
	Addresses() ([]string, error)
}

// resultLister is the subset of *searchstore.Store needed for a
// stored-result count.
type resultLister interface {
	All() ([]searchresult.Result, error)
}

// Handler holds the dependencies the status endpoints report on.
type Handler struct {
	node      Node
	directory peerLister
	store     resultLister
}

// NewHandler creates a Handler.
func NewHandler(node Node, directory peerLister, store resultLister) *Handler {
	return &Handler{node: node, directory: directory, store: store}
}

// Register mounts the diagnostics routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
}

// Health handles GET /health, reporting the node's identity plus known
// peer and stored-result counts.
func (h *Handler) Health(c *gin.Context) {
	peerCount := 0
	if addrs, err := h.directory.Addresses(); err == nil {
		peerCount = len(addrs)
	}

	resultCount := 0
	if all, err := h.store.All(); err == nil {
		resultCount = len(all)
	}

	c.JSON(http.StatusOK, gin.H{
		"node_id":      h.node.ID(),
		"peer_count":   peerCount,
		"result_count": resultCount,
		"status":       "ok",
	})
}
