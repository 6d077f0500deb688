package state

import (
	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// Message is the closed set of requests the coordinator accepts.
type Message interface {
	isMessage()
}

// DeltaMessage carries the write-set changes one watched address received
// in a transaction batch.
type DeltaMessage struct {
	Address string
	// Version is the highest ledger version of the batch.
	Version uint64
	Changes []domain.WriteSetChange
}

// RouteRequest is a route query. It is comparable and doubles as the route
// cache key.
type RouteRequest struct {
	TokenIn  string
	TokenOut string
	Amount   uint64
	MaxHops  int
}

type RouteResult struct {
	Routes []domain.Route
	Err    error
}

type RouteQuery struct {
	Request RouteRequest
	Reply   chan<- RouteResult
}

// WatchListRequest asks for the module addresses of all registries.
type WatchListRequest struct {
	Reply chan<- []string
}

type StatsRequest struct {
	Reply chan<- Stats
}

type PairsRequest struct {
	Offset int
	Limit  int
	Reply  chan<- PairsPage
}

func (DeltaMessage) isMessage()     {}
func (RouteQuery) isMessage()       {}
func (WatchListRequest) isMessage() {}
func (StatsRequest) isMessage()     {}
func (PairsRequest) isMessage()     {}
