package http

import (
	"context"
	"errors"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/aptos-route-engine/internal/config"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
	"github.com/hxuan190/aptos-route-engine/internal/http/httputil"
	"github.com/hxuan190/aptos-route-engine/internal/http/middlewares"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
)

type fakeCoordinator struct {
	routes   []domain.Route
	err      error
	lastReq  state.RouteRequest
	stats    state.Stats
	page     state.PairsPage
	offset   int
	limit    int
	pagesErr error
}

func (f *fakeCoordinator) Query(ctx context.Context, req state.RouteRequest) ([]domain.Route, error) {
	f.lastReq = req
	return f.routes, f.err
}

func (f *fakeCoordinator) Stats(ctx context.Context) (state.Stats, error) {
	return f.stats, f.err
}

func (f *fakeCoordinator) Pairs(ctx context.Context, offset, limit int) (state.PairsPage, error) {
	f.offset, f.limit = offset, limit
	return f.page, f.pagesErr
}

func newTestService(coord *fakeCoordinator) *HTTPService {
	gin.SetMode(gin.TestMode)
	svc := &HTTPService{
		coordinator: coord,
		conf:        &config.GeneralConfig{Env: config.DevEnv},
		rateLimiter: middlewares.NewRateLimiter(1000, 1000),
		network:     domain.Network{Name: "testnet"},
	}
	svc.handlers = []httputil.IHttpHandler{
		NewRouteHandler(coord),
		NewPairHandler(coord),
	}
	return svc
}

func serve(t *testing.T, svc *HTTPService, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	svc.router().ServeHTTP(w, httptest.NewRequest(gohttp.MethodGet, target, nil))
	return w
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func twoRoutes() []domain.Route {
	direct := domain.NewSeedRoute("A", 1_000_000).Extend(0, "pAC", "C", 1_000)
	twoHop := domain.NewSeedRoute("A", 1_000_000).
		Extend(1, "pAB", "B", 1_993_011).
		Extend(2, "pBC", "C", 2_979_081)
	return []domain.Route{direct, twoHop}
}

func TestGetRoutes(t *testing.T) {
	coord := &fakeCoordinator{routes: twoRoutes()}
	svc := newTestService(coord)

	w := serve(t, svc, "/api/v1/routes?tokenIn=A&tokenOut=C&amount=1000000&maxHops=2")
	require.Equal(t, gohttp.StatusOK, w.Code)

	assert.Equal(t, state.RouteRequest{TokenIn: "A", TokenOut: "C", Amount: 1_000_000, MaxHops: 2}, coord.lastReq)

	env := decode[RouteResponse](t, w)
	assert.True(t, env.Success)
	require.Len(t, env.Data.Routes, 2)
	require.NotNil(t, env.Data.Best)
	assert.Equal(t, "2979081", env.Data.Best.AmountOut)
	assert.Equal(t, []string{"A", "B", "C"}, env.Data.Best.Path)
	assert.Equal(t, []string{"1000000", "1993011", "2979081"}, env.Data.Best.Amounts)
	assert.Equal(t, []string{"pAB", "pBC"}, env.Data.Best.Pairs)
	assert.Equal(t, 2, env.Data.Best.Hops)
}

func TestGetRoutesEmptyIsSuccess(t *testing.T) {
	svc := newTestService(&fakeCoordinator{})

	w := serve(t, svc, "/api/v1/routes?tokenIn=A&tokenOut=A&amount=5")
	require.Equal(t, gohttp.StatusOK, w.Code)

	env := decode[RouteResponse](t, w)
	assert.True(t, env.Success)
	assert.Empty(t, env.Data.Routes)
	assert.Nil(t, env.Data.Best)
}

func TestGetRoutesZeroAmountIsEmpty(t *testing.T) {
	coord := &fakeCoordinator{}
	svc := newTestService(coord)

	w := serve(t, svc, "/api/v1/routes?tokenIn=A&tokenOut=B&amount=0")
	require.Equal(t, gohttp.StatusOK, w.Code)
	assert.Equal(t, uint64(0), coord.lastReq.Amount)

	env := decode[RouteResponse](t, w)
	assert.True(t, env.Success)
	assert.Empty(t, env.Data.Routes)
	assert.Nil(t, env.Data.Best)
}

func TestGetRoutesErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
		code   string
	}{
		{"missing token", "/api/v1/routes?tokenIn=A&amount=1", nil, gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"negative amount", "/api/v1/routes?tokenIn=A&tokenOut=B&amount=-5", nil, gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"bad amount", "/api/v1/routes?tokenIn=A&tokenOut=B&amount=1e6", nil, gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"negative hops", "/api/v1/routes?tokenIn=A&tokenOut=B&amount=1&maxHops=-1", nil, gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"timeout", "/api/v1/routes?tokenIn=A&tokenOut=B&amount=1", state.ErrQueryTimeout, gohttp.StatusGatewayTimeout, "TIMEOUT"},
		{"stopped", "/api/v1/routes?tokenIn=A&tokenOut=B&amount=1", state.ErrCoordinatorStopped, gohttp.StatusServiceUnavailable, "UNAVAILABLE"},
		{"curve", "/api/v1/routes?tokenIn=A&tokenOut=B&amount=1", domain.ErrUnsupportedCurve, gohttp.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeCoordinator{err: tt.err})
			w := serve(t, svc, tt.target)
			assert.Equal(t, tt.status, w.Code)

			env := decode[RouteResponse](t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestPairStats(t *testing.T) {
	coord := &fakeCoordinator{stats: state.Stats{
		Pairs:      3,
		Tokens:     3,
		ByProtocol: map[domain.Protocol]int{domain.ProtocolPancake: 3},
	}}
	svc := newTestService(coord)

	w := serve(t, svc, "/api/v1/pairs/stats")
	require.Equal(t, gohttp.StatusOK, w.Code)

	env := decode[state.Stats](t, w)
	assert.Equal(t, 3, env.Data.Pairs)
	assert.Equal(t, 3, env.Data.ByProtocol[domain.ProtocolPancake])
}

func TestPairList(t *testing.T) {
	items := []state.PairView{{ID: 0}, {ID: 1}}
	coord := &fakeCoordinator{page: state.PairsPage{Total: 1201, Items: items}}
	svc := newTestService(coord)

	w := serve(t, svc, "/api/v1/pairs/list?page=3&limit=1000")
	require.Equal(t, gohttp.StatusOK, w.Code)
	assert.Equal(t, 1000, coord.offset)
	assert.Equal(t, maxPageLimit, coord.limit)

	env := decode[PairListResponse](t, w)
	assert.Equal(t, 1201, env.Data.Total)
	assert.Equal(t, 3, env.Data.Page)
	assert.Equal(t, 3, env.Data.Pages)
	assert.Len(t, env.Data.Pairs, 2)

	w = serve(t, svc, "/api/v1/pairs/list?page=-4")
	require.Equal(t, gohttp.StatusOK, w.Code)
	assert.Equal(t, 0, coord.offset)
	assert.Equal(t, defaultPageLimit, coord.limit)

	coord.pagesErr = errors.New("boom")
	w = serve(t, svc, "/api/v1/pairs/list")
	assert.Equal(t, gohttp.StatusInternalServerError, w.Code)
}

func TestRootAndHealth(t *testing.T) {
	svc := newTestService(&fakeCoordinator{})

	w := serve(t, svc, "/")
	assert.Equal(t, gohttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "testnet")

	w = serve(t, svc, "/health")
	assert.Equal(t, gohttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
