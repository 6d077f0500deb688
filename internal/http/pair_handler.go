package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/aptos-route-engine/internal/http/httputil"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

type PairHandler struct {
	coordinator Coordinator
}

func NewPairHandler(coordinator Coordinator) *PairHandler {
	return &PairHandler{coordinator: coordinator}
}

func (h *PairHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/stats", h.getStats)
	pub.GET("/list", h.listPairs)
}

func (h *PairHandler) Root() string {
	return "/pairs"
}

func (h *PairHandler) getStats(c *gin.Context) {
	stats, err := h.coordinator.Stats(c.Request.Context())
	if err != nil {
		httputil.Fail(c, toHTTPError(err))
		return
	}
	httputil.Success(c, stats)
}

// PairListResponse contains a page of tracked pairs
type PairListResponse struct {
	Pairs []state.PairView `json:"pairs"`

	// Total number of pairs across all pages
	Total int `json:"total" example:"1247"`

	// Current page number (1-indexed)
	Page int `json:"page" example:"1"`

	// Number of pairs per page (max 500)
	Limit int `json:"limit" example:"100"`

	Pages int `json:"pages" example:"13"`
}

func (h *PairHandler) listPairs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	result, err := h.coordinator.Pairs(c.Request.Context(), (page-1)*limit, limit)
	if err != nil {
		httputil.Fail(c, toHTTPError(err))
		return
	}

	httputil.Success(c, PairListResponse{
		Pairs: result.Items,
		Total: result.Total,
		Page:  page,
		Limit: limit,
		Pages: (result.Total + limit - 1) / limit,
	})
}
