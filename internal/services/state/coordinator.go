// Package state owns the live pair graph. All graph reads and writes happen
// on one goroutine that drains an ordered inbox, so the graph needs no lock.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
	"github.com/hxuan190/aptos-route-engine/internal/metrics"
	"github.com/hxuan190/aptos-route-engine/internal/services/registry"
	"github.com/hxuan190/aptos-route-engine/internal/services/router"
)

var (
	ErrCoordinatorStopped = errors.New("state coordinator stopped")
	ErrQueryTimeout       = errors.New("route query timed out")
)

// PairStore persists pair descriptors between restarts.
type PairStore interface {
	LoadPairs(network string) ([]domain.PairDescriptor, error)
	SavePairs(pairs []domain.PairDescriptor) error
}

type Options struct {
	InboxSize    int
	DefaultHops  int
	MaxHops      int
	QueryTimeout time.Duration
	CacheSize    int
	Mode         router.Mode
	// Store is optional.
	Store PairStore
}

func DefaultOptions() Options {
	return Options{
		InboxSize:    1024,
		DefaultHops:  3,
		MaxHops:      5,
		QueryTimeout: 2 * time.Second,
		CacheSize:    4096,
		Mode:         router.ModeGreedy,
	}
}

type Coordinator struct {
	network    domain.Network
	registries *registry.Set
	graph      *Graph
	opts       Options

	inbox chan Message
	done  chan struct{}
	cache *routeCache[RouteRequest, []domain.Route]
}

func NewCoordinator(network domain.Network, registries *registry.Set, opts Options) *Coordinator {
	if opts.DefaultHops <= 0 {
		opts.DefaultHops = 3
	}
	if opts.MaxHops < opts.DefaultHops {
		opts.MaxHops = opts.DefaultHops
	}
	return &Coordinator{
		network:    network,
		registries: registries,
		graph:      NewGraph(),
		opts:       opts,
		inbox:      make(chan Message, opts.InboxSize),
		done:       make(chan struct{}),
		cache:      newRouteCache[RouteRequest, []domain.Route](opts.CacheSize),
	}
}

// Initialize builds the graph and loads initial reserves. It must complete
// before Run starts. Any error is fatal.
func (c *Coordinator) Initialize(ctx context.Context) error {
	start := time.Now()

	pairs, fromStore, err := c.loadPairs(ctx)
	if err != nil {
		return err
	}

	added, err := c.graph.AddPairs(pairs, c.metadataKey)
	if err != nil {
		return fmt.Errorf("build pair graph: %w", err)
	}
	if err := c.graph.checkIndex(); err != nil {
		return fmt.Errorf("%w: %v", router.ErrBrokenInvariant, err)
	}

	if !fromStore && c.opts.Store != nil && added > 0 {
		if err := c.opts.Store.SavePairs(c.graph.Descriptors()); err != nil {
			log.Warn().Err(err).Msg("[StateCoordinator] failed to save pair snapshot")
		}
	}

	regs := c.registries.All()
	snapshots := make([]domain.MetadataDeltas, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range regs {
		g.Go(func() error {
			deltas, err := r.SnapshotMetadata(gctx, c.network)
			if err != nil {
				return fmt.Errorf("%s: %w", r.Protocol(), err)
			}
			snapshots[i] = deltas
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, r := range regs {
		n := c.graph.Apply(r.Protocol(), snapshots[i], 0)
		metrics.MetadataDeltasApplied.WithLabelValues(string(r.Protocol()), "snapshot").Add(float64(n))
	}

	c.publishGraphMetrics()
	metrics.DiscoveryDuration.Set(time.Since(start).Seconds())

	stats := c.graph.Stats()
	log.Info().
		Int("pairs", stats.Pairs).
		Int("tokens", stats.Tokens).
		Int("with_metadata", stats.WithMetadata).
		Bool("from_snapshot", fromStore).
		Dur("took", time.Since(start)).
		Msg("[StateCoordinator] graph initialized")
	return nil
}

func (c *Coordinator) loadPairs(ctx context.Context) ([]*domain.Pair, bool, error) {
	if c.opts.Store != nil {
		descs, err := c.opts.Store.LoadPairs(c.network.Name)
		if err != nil {
			log.Warn().Err(err).Msg("[StateCoordinator] pair snapshot unreadable, discovering")
		} else if len(descs) > 0 {
			pairs := make([]*domain.Pair, 0, len(descs))
			for _, d := range descs {
				if _, ok := c.registries.Get(d.Protocol); !ok {
					log.Debug().Str("protocol", string(d.Protocol)).Str("pair", d.PairKey).Msg("[StateCoordinator] skip stored pair of unconfigured protocol")
					continue
				}
				pairs = append(pairs, domain.PairFromDescriptor(d))
			}
			if len(pairs) > 0 {
				return pairs, true, nil
			}
		}
	}

	regs := c.registries.All()
	discovered := make([][]*domain.Pair, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range regs {
		g.Go(func() error {
			pairs, err := r.DiscoverPairs(gctx, c.network)
			if err != nil {
				return fmt.Errorf("%s: %w", r.Protocol(), err)
			}
			discovered[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	var pairs []*domain.Pair
	for _, ps := range discovered {
		pairs = append(pairs, ps...)
	}
	return pairs, false, nil
}

func (c *Coordinator) metadataKey(p *domain.Pair) (string, error) {
	r, ok := c.registries.Get(p.Protocol)
	if !ok {
		return "", fmt.Errorf("%w: %q on pair %s", registry.ErrUnknownProtocol, p.Protocol, p.PairKey)
	}
	return r.MetadataKey(p), nil
}

// Run drains the inbox until ctx is cancelled. It must be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	log.Info().Msg("[StateCoordinator] serving")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("[StateCoordinator] stopped")
			return ctx.Err()
		case msg := <-c.inbox:
			metrics.InboxDepth.Set(float64(len(c.inbox)))
			c.handle(msg)
		}
	}
}

func (c *Coordinator) handle(msg Message) {
	switch m := msg.(type) {
	case DeltaMessage:
		c.applyChanges(m)
	case RouteQuery:
		m.Reply <- c.route(m.Request)
	case WatchListRequest:
		m.Reply <- c.registries.WatchList()
	case StatsRequest:
		m.Reply <- c.graph.Stats()
	case PairsRequest:
		m.Reply <- c.graph.Page(m.Offset, m.Limit)
	default:
		log.Error().Str("type", fmt.Sprintf("%T", msg)).Msg("[StateCoordinator] unknown message")
	}
}

func (c *Coordinator) applyChanges(m DeltaMessage) {
	metrics.DeltaMessages.Inc()

	decoded := c.registries.DecodeAll(m.Changes)
	changed := 0
	for _, r := range c.registries.All() {
		deltas, ok := decoded[r.Protocol()]
		if !ok {
			continue
		}
		n := c.graph.Apply(r.Protocol(), deltas, m.Version)
		metrics.MetadataDeltasApplied.WithLabelValues(string(r.Protocol()), "ledger").Add(float64(n))
		changed += n
	}

	if changed > 0 {
		c.cache.Clear()
		metrics.RouteCacheSize.Set(0)
	}

	log.Debug().
		Str("address", m.Address).
		Uint64("version", m.Version).
		Int("changes", len(m.Changes)).
		Int("pairs_changed", changed).
		Msg("[StateCoordinator] applied change batch")
}

func (c *Coordinator) normalize(req RouteRequest) RouteRequest {
	if req.MaxHops <= 0 {
		req.MaxHops = c.opts.DefaultHops
	}
	if req.MaxHops > c.opts.MaxHops {
		req.MaxHops = c.opts.MaxHops
	}
	return req
}

func (c *Coordinator) route(req RouteRequest) RouteResult {
	req = c.normalize(req)
	mode := c.opts.Mode.String()

	if routes, ok := c.cache.Get(req); ok {
		metrics.RouteCacheHits.Inc()
		metrics.RouteQueries.WithLabelValues(mode, "cached").Inc()
		return RouteResult{Routes: routes}
	}
	metrics.RouteCacheMisses.Inc()

	start := time.Now()
	routes, err := router.FindBestRoutes(c.graph, req.TokenIn, req.TokenOut, req.Amount, req.MaxHops, c.opts.Mode)
	metrics.RouteDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RouteQueries.WithLabelValues(mode, "error").Inc()
		log.Error().Err(err).Str("token_in", req.TokenIn).Str("token_out", req.TokenOut).Msg("[StateCoordinator] route search failed")
		return RouteResult{Err: err}
	}

	status := "found"
	if len(routes) == 0 {
		status = "empty"
	}
	metrics.RouteQueries.WithLabelValues(mode, status).Inc()

	c.cache.Set(req, routes)
	metrics.RouteCacheSize.Set(float64(c.cache.Len()))
	return RouteResult{Routes: routes}
}

func (c *Coordinator) publishGraphMetrics() {
	stats := c.graph.Stats()
	for p, n := range stats.ByProtocol {
		metrics.PairCount.WithLabelValues(string(p)).Set(float64(n))
	}
	metrics.TokenCount.Set(float64(stats.Tokens))
}

// Submit enqueues msg, blocking while the inbox is full.
func (c *Coordinator) Submit(ctx context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrCoordinatorStopped
	default:
	}

	select {
	case c.inbox <- msg:
		return nil
	case <-ctx.Done():
		return contextErr(ctx)
	case <-c.done:
		return ErrCoordinatorStopped
	}
}

// Query runs a route search against the graph as of every delta submitted
// before it. It is bounded by the configured query timeout.
func (c *Coordinator) Query(ctx context.Context, req RouteRequest) ([]domain.Route, error) {
	if c.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.QueryTimeout)
		defer cancel()
	}

	reply := make(chan RouteResult, 1)
	if err := c.Submit(ctx, RouteQuery{Request: req, Reply: reply}); err != nil {
		return nil, err
	}
	res, err := await(ctx, c.done, reply)
	if err != nil {
		return nil, err
	}
	return res.Routes, res.Err
}

func (c *Coordinator) WatchList(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := c.Submit(ctx, WatchListRequest{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, c.done, reply)
}

func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := c.Submit(ctx, StatsRequest{Reply: reply}); err != nil {
		return Stats{}, err
	}
	return await(ctx, c.done, reply)
}

func (c *Coordinator) Pairs(ctx context.Context, offset, limit int) (PairsPage, error) {
	reply := make(chan PairsPage, 1)
	if err := c.Submit(ctx, PairsRequest{Offset: offset, Limit: limit, Reply: reply}); err != nil {
		return PairsPage{}, err
	}
	return await(ctx, c.done, reply)
}

func await[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, contextErr(ctx)
	case <-done:
		// the reply may have been sent just before the loop exited
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrCoordinatorStopped
		}
	}
}

func contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrQueryTimeout, ctx.Err())
	}
	return ctx.Err()
}
