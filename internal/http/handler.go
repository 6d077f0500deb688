package http

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/aptos-route-engine/internal/config"
	"github.com/hxuan190/aptos-route-engine/internal/domain"
	"github.com/hxuan190/aptos-route-engine/internal/http/httputil"
	"github.com/hxuan190/aptos-route-engine/internal/http/middlewares"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

// Coordinator is the part of the state coordinator the API reads from.
type Coordinator interface {
	Query(ctx context.Context, req state.RouteRequest) ([]domain.Route, error)
	Stats(ctx context.Context) (state.Stats, error)
	Pairs(ctx context.Context, offset, limit int) (state.PairsPage, error)
}

type HTTPService struct {
	container.BaseDIInstance

	coordinator Coordinator
	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server
	conf        *config.GeneralConfig
	network     domain.Network

	handlers []httputil.IHttpHandler
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

func (svc *HTTPService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	if svc.conf == nil {
		return errors.New("invalid server config")
	}
	svc.network = c.GetConfig(config.NETWORK_CONFIG_KEY).(*config.NetworkConfig).Network

	stateSvc := c.Instance(state.STATE_SERVICE).(*state.Service)
	svc.coordinator = stateSvc.Coordinator()
	svc.rateLimiter = middlewares.NewRateLimiter(svc.conf.RateLimit, svc.conf.RateBurst)

	svc.handlers = []httputil.IHttpHandler{
		NewRouteHandler(svc.coordinator),
		NewPairHandler(svc.coordinator),
	}
	return nil
}

func (svc *HTTPService) Start() error {
	if svc.conf.Env != config.DevEnv {
		gin.SetMode(gin.ReleaseMode)
	}

	svc.server = &gohttp.Server{
		Addr:    svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler: svc.router(),
	}

	go func() {
		if err := svc.server.ListenAndServe(); err != nil && !errors.Is(err, gohttp.ErrServerClosed) {
			log.Error().Err(err).Msg("[HTTPService] server failed")
		}
	}()
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("[HTTPService] http server started")
	return nil
}

func (svc *HTTPService) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.String(gohttp.StatusOK, fmt.Sprintf("aptos route engine (%s)", svc.network.Name))
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("api")
	api.Use(svc.rateLimiter.RateLimitMiddleware())
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)
	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION))

	svc.setupHandlers(pub, priv, admin)
	return r
}

func (svc *HTTPService) Stop() error {
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("[HTTPService] failed to stop http server")
		return err
	}
	log.Info().Msg("[HTTPService] http server stopped gracefully")
	return nil
}

func (svc *HTTPService) setupHandlers(
	rootPub *gin.RouterGroup,
	rootPriv *gin.RouterGroup,
	rootAdmin *gin.RouterGroup,
) {
	for _, h := range svc.handlers {
		pub := rootPub.Group(h.Root())
		priv := rootPriv.Group(h.Root())
		admin := rootAdmin.Group(h.Root())
		h.SetRoutes(pub, priv, admin)
	}
}
