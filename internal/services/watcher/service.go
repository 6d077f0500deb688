package watcher

import (
	"context"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/aptos-route-engine/internal/config"
	"github.com/hxuan190/aptos-route-engine/internal/services"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
)

const WATCHER_SERVICE = "watcher-service"

type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	config  *config.WatcherConfig
	watcher *Watcher

	cancel context.CancelFunc
	done   chan struct{}
}

func (svc *Service) ID() string {
	return WATCHER_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.config = c.GetConfig(config.WATCHER_CONFIG_KEY).(*config.WatcherConfig)
	stateSvc := c.Instance(state.STATE_SERVICE).(*state.Service)

	svc.watcher = New(stateSvc.Ledger(), stateSvc.Coordinator(), svc.config.PollInterval, svc.config.BatchSize)
	return nil
}

func (svc *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	svc.done = make(chan struct{})

	go func() {
		defer close(svc.done)
		if err := svc.watcher.Run(ctx, svc.config.StartVersion); err != nil && ctx.Err() == nil {
			svc.logger.Error().Err(err).Msg("[WatcherService] watcher exited")
		}
	}()

	svc.logger.Info().Uint64("start_version", svc.config.StartVersion).Msg("[WatcherService] started")
	return nil
}

func (svc *Service) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
		<-svc.done
	}
	return nil
}

func (svc *Service) Version() uint64 {
	return svc.watcher.Version()
}
