package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/aptos-route-engine/internal/common"
	"github.com/hxuan190/aptos-route-engine/internal/config"
	"github.com/hxuan190/aptos-route-engine/internal/http"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
	"github.com/hxuan190/aptos-route-engine/internal/services/watcher"
)

// @title Aptos Route Engine API
// @version 1.0
// @description Multi-hop swap route search across Aptos AMM pools (PancakeSwap, Liquidswap).
// @description
// @description ## Usage
// @description - Amounts are base units as decimal strings
// @description - Coin types are fully qualified Move type names, e.g. `0x1::aptos_coin::AptosCoin`
// @description - Routes are listed worst to best, `best` is the highest-output route
// @BasePath /
// @schemes https http
// @tag.name routes
// @tag.description Best-output route search for a fixed input amount
// @tag.name pairs
// @tag.description Tracked pairs and graph statistics

func main() {
	// .env is optional, the environment may already carry everything
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env loaded")
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("invalid general config")
		return
	}
	common.SetupLogger(general.Env, general.Level())
	common.TuneRuntime()

	conf := container.NewConf(
		general,
		&config.NetworkConfig{},
		&config.RegistryConfig{},
		&config.WatcherConfig{},
		&config.StateConfig{},
		&config.SnapshotConfig{},
	)

	dic, err := container.New(
		conf,

		// state first: the watcher and the API read its coordinator
		&state.Service{},
		&watcher.Service{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
