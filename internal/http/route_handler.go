package http

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/aptos-route-engine/internal/common"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
	"github.com/hxuan190/aptos-route-engine/internal/http/httputil"
	"github.com/hxuan190/aptos-route-engine/internal/services/router"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
)

type RouteHandler struct {
	coordinator Coordinator
}

func NewRouteHandler(coordinator Coordinator) *RouteHandler {
	return &RouteHandler{coordinator: coordinator}
}

func (h *RouteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getRoutes)
}

func (h *RouteHandler) Root() string {
	return "/routes"
}

// RouteRequest represents the parameters of a route search
type RouteRequest struct {
	// Input coin type
	TokenIn string `form:"tokenIn" binding:"required" example:"0x1::aptos_coin::AptosCoin"`

	// Output coin type
	TokenOut string `form:"tokenOut" binding:"required" example:"0xf22b::asset::USDC"`

	// Amount of tokenIn in base units
	Amount string `form:"amount" binding:"required" example:"100000000"`

	// Maximum number of swaps in a route. 0 uses the server default.
	MaxHops int `form:"maxHops" example:"3"`
}

// RouteView is one candidate route
type RouteView struct {
	// Token path from tokenIn to tokenOut
	Path []string `json:"path"`

	// Amount held after each step, starting with the input amount
	Amounts []string `json:"amounts"`

	// Pair key of each hop
	Pairs []string `json:"pairs"`

	Hops int `json:"hops" example:"2"`

	AmountOut string `json:"amountOut" example:"2979081"`
}

// RouteResponse lists every candidate route, worst to best
type RouteResponse struct {
	TokenIn  string      `json:"tokenIn"`
	TokenOut string      `json:"tokenOut"`
	AmountIn string      `json:"amountIn"`
	Routes   []RouteView `json:"routes"`

	// Highest-output route, absent when nothing reaches tokenOut
	Best *RouteView `json:"best,omitempty"`
}

func (h *RouteHandler) getRoutes(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	// a zero amount is a valid query that no pair can quote
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil {
		httputil.BadRequest(c, "invalid amount: must be an unsigned integer")
		return
	}
	if req.MaxHops < 0 {
		httputil.BadRequest(c, "invalid maxHops: must not be negative")
		return
	}

	routes, err := h.coordinator.Query(c.Request.Context(), state.RouteRequest{
		TokenIn:  req.TokenIn,
		TokenOut: req.TokenOut,
		Amount:   amount,
		MaxHops:  req.MaxHops,
	})
	if err != nil {
		httputil.Fail(c, toHTTPError(err))
		return
	}

	resp := RouteResponse{
		TokenIn:  req.TokenIn,
		TokenOut: req.TokenOut,
		AmountIn: req.Amount,
		Routes:   make([]RouteView, 0, len(routes)),
	}
	for _, r := range routes {
		resp.Routes = append(resp.Routes, newRouteView(r))
	}
	if best, ok := router.Best(routes); ok {
		view := newRouteView(best)
		resp.Best = &view
	}

	httputil.Success(c, resp)
}

func newRouteView(r domain.Route) RouteView {
	amounts := make([]string, len(r.Amounts))
	for i, a := range r.Amounts {
		amounts[i] = strconv.FormatUint(a, 10)
	}
	return RouteView{
		Path:      r.Path,
		Amounts:   amounts,
		Pairs:     r.PairKeys,
		Hops:      r.Hops(),
		AmountOut: strconv.FormatUint(r.Output(), 10),
	}
}

func toHTTPError(err error) *common.HttpError {
	switch {
	case errors.Is(err, state.ErrQueryTimeout):
		return common.HTTPErrorTimeout("route search timed out")
	case errors.Is(err, state.ErrCoordinatorStopped):
		return common.HTTPErrorUnavailable("router is shutting down")
	default:
		return common.HTTPErrorInternalError(err.Error())
	}
}
