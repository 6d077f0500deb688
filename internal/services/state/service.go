package state

import (
	"context"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/aptos-route-engine/internal/adapters/ledger"
	"github.com/hxuan190/aptos-route-engine/internal/adapters/persistence"
	"github.com/hxuan190/aptos-route-engine/internal/config"
	"github.com/hxuan190/aptos-route-engine/internal/services"
	"github.com/hxuan190/aptos-route-engine/internal/services/registry"
	"github.com/hxuan190/aptos-route-engine/internal/services/router"
)

const STATE_SERVICE = "state-service"

// Service wires the coordinator into the DI container. Start blocks until
// the graph is initialized, then serves in the background.
type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	ledger      *ledger.Client
	store       *persistence.PairStore
	coordinator *Coordinator

	cancel context.CancelFunc
	runErr chan error
}

func (svc *Service) ID() string {
	return STATE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)

	networkConfig := c.GetConfig(config.NETWORK_CONFIG_KEY).(*config.NetworkConfig)
	registryConfig := c.GetConfig(config.REGISTRY_CONFIG_KEY).(*config.RegistryConfig)
	watcherConfig := c.GetConfig(config.WATCHER_CONFIG_KEY).(*config.WatcherConfig)
	stateConfig := c.GetConfig(config.STATE_CONFIG_KEY).(*config.StateConfig)
	snapshotConfig := c.GetConfig(config.SNAPSHOT_CONFIG_KEY).(*config.SnapshotConfig)

	network := networkConfig.Network
	svc.logger = svc.logger.With("network", network.Name)
	svc.ledger = ledger.NewClient(network.HTTP,
		ledger.WithRateLimit(watcherConfig.LedgerRPS),
		ledger.WithTimeout(watcherConfig.LedgerTimeout),
	)

	descriptors, err := registryConfig.ForNetwork(network.Name)
	if err != nil {
		return err
	}
	registries, err := registry.NewSetFromDescriptors(network.Name, descriptors, svc.ledger)
	if err != nil {
		return err
	}

	mode, err := router.ParseMode(stateConfig.SearchMode)
	if err != nil {
		return err
	}

	opts := Options{
		InboxSize:    stateConfig.InboxSize,
		DefaultHops:  stateConfig.DefaultHops,
		MaxHops:      stateConfig.MaxHops,
		QueryTimeout: stateConfig.QueryTimeout,
		CacheSize:    stateConfig.RouteCacheSize,
		Mode:         mode,
	}
	if snapshotConfig.Enabled {
		svc.store, err = persistence.NewPairStore(snapshotConfig.DBPath)
		if err != nil {
			return err
		}
		opts.Store = svc.store
	}

	svc.coordinator = NewCoordinator(network, registries, opts)
	svc.logger.Info().
		Int("registries", registries.Len()).
		Str("mode", mode.String()).
		Bool("snapshot", snapshotConfig.Enabled).
		Msg("[StateService] configured")
	return nil
}

func (svc *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel

	if err := svc.coordinator.Initialize(ctx); err != nil {
		cancel()
		svc.logger.Error().Err(err).Msg("[StateService] initialization failed")
		return err
	}

	svc.runErr = make(chan error, 1)
	go func() {
		svc.runErr <- svc.coordinator.Run(ctx)
	}()
	svc.logger.Info().Msg("[StateService] started")
	return nil
}

func (svc *Service) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
	}
	if svc.runErr != nil {
		<-svc.runErr
	}
	if svc.store != nil {
		return svc.store.Close()
	}
	return nil
}

func (svc *Service) Coordinator() *Coordinator {
	return svc.coordinator
}

func (svc *Service) Ledger() *ledger.Client {
	return svc.ledger
}
