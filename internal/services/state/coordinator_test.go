package state

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
	"github.com/hxuan190/aptos-route-engine/internal/services/registry"
	"github.com/hxuan190/aptos-route-engine/internal/services/router"
)

const fakeProtocol domain.Protocol = "fake"

var testNetwork = domain.Network{Name: "testnet", HTTP: "http://localhost"}

// fakeRegistry decodes changes whose resource type is a metadata key and
// whose data is a [reserve_x, reserve_y] array.
type fakeRegistry struct {
	address     string
	pairs       []*domain.Pair
	snapshot    domain.MetadataDeltas
	discoverErr error
	snapshotErr error

	discoverCalls int
}

func (f *fakeRegistry) ModuleAddress() string     { return f.address }
func (f *fakeRegistry) Protocol() domain.Protocol { return fakeProtocol }

func (f *fakeRegistry) DiscoverPairs(context.Context, domain.Network) ([]*domain.Pair, error) {
	f.discoverCalls++
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	// hand out fresh copies so tests sharing a fixture do not share metadata
	out := make([]*domain.Pair, len(f.pairs))
	for i, p := range f.pairs {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (f *fakeRegistry) SnapshotMetadata(context.Context, domain.Network) (domain.MetadataDeltas, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeRegistry) DecodeChanges(changes []domain.WriteSetChange) domain.MetadataDeltas {
	out := make(domain.MetadataDeltas)
	for _, c := range changes {
		if c.Address != f.address || c.Data == nil {
			continue
		}
		var reserves [2]uint64
		if err := json.Unmarshal(c.Data.Data, &reserves); err != nil {
			continue
		}
		out[c.Data.Type] = domain.Metadata{Reserves: reserves}
	}
	return out
}

func (f *fakeRegistry) MetadataKey(p *domain.Pair) string {
	return p.TokenArr[0] + "/" + p.TokenArr[1]
}

func fakePair(x, y string) *domain.Pair {
	return &domain.Pair{
		Network:     testNetwork.Name,
		Protocol:    fakeProtocol,
		PairKey:     domain.PairKey("0xfake", x, y),
		PoolAddress: "0xfake",
		TokenArr:    [2]string{x, y},
		Curve:       domain.CurveUncorrelated,
		FeeBps:      25,
	}
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		address: "0xfake",
		pairs:   []*domain.Pair{fakePair("A", "B"), fakePair("B", "C")},
		snapshot: domain.MetadataDeltas{
			"A/B": {Reserves: [2]uint64{1_000_000_000, 2_000_000_000}},
			"B/C": {Reserves: [2]uint64{2_000_000_000, 3_000_000_000}},
		},
	}
}

func reserveChange(address, key string, rx, ry uint64) domain.WriteSetChange {
	data, _ := json.Marshal([2]uint64{rx, ry})
	return domain.WriteSetChange{
		Type:    "write_resource",
		Address: address,
		Data:    &domain.MoveResource{Type: key, Data: data},
	}
}

func newTestCoordinator(t *testing.T, reg registry.Registry, opts Options) *Coordinator {
	t.Helper()
	set := registry.NewSet()
	require.NoError(t, set.Register(reg))
	return NewCoordinator(testNetwork, set, opts)
}

func startCoordinator(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

func routeAC() RouteRequest {
	return RouteRequest{TokenIn: "A", TokenOut: "C", Amount: 1_000_000, MaxHops: 2}
}

func TestCoordinatorInitializeAndQuery(t *testing.T) {
	c := newTestCoordinator(t, newFakeRegistry(), DefaultOptions())
	require.NoError(t, c.Initialize(context.Background()))
	startCoordinator(t, c)

	routes, err := c.Query(context.Background(), routeAC())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, []uint64{1_000_000, 1_993_011, 2_979_081}, routes[0].Amounts)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pairs)
	assert.Equal(t, 3, stats.Tokens)
	assert.Equal(t, 2, stats.WithMetadata)

	oneHop, err := c.Query(context.Background(), RouteRequest{TokenIn: "A", TokenOut: "C", Amount: 1_000_000, MaxHops: 1})
	require.NoError(t, err)
	assert.Empty(t, oneHop)

	same, err := c.Query(context.Background(), RouteRequest{TokenIn: "A", TokenOut: "A", Amount: 1_000_000})
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestCoordinatorNoMatchingDeltaLeavesGraphUnchanged(t *testing.T) {
	c := newTestCoordinator(t, newFakeRegistry(), DefaultOptions())
	require.NoError(t, c.Initialize(context.Background()))
	startCoordinator(t, c)
	ctx := context.Background()

	before, err := c.Query(ctx, routeAC())
	require.NoError(t, err)
	pagesBefore, err := c.Pairs(ctx, 0, 10)
	require.NoError(t, err)
	statsBefore, err := c.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Submit(ctx, DeltaMessage{
		Address: "0xfake",
		Version: 10,
		Changes: []domain.WriteSetChange{
			reserveChange("0xfake", "X/Y", 1, 1),
			reserveChange("0xother", "A/B", 1, 1),
			{Type: "write_module", Address: "0xfake"},
		},
	}))

	after, err := c.Query(ctx, routeAC())
	require.NoError(t, err)
	pagesAfter, err := c.Pairs(ctx, 0, 10)
	require.NoError(t, err)
	statsAfter, err := c.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, pagesBefore, pagesAfter)
	assert.Equal(t, statsBefore.Generation, statsAfter.Generation)
}

func TestCoordinatorDeltaIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t, newFakeRegistry(), DefaultOptions())
	require.NoError(t, c.Initialize(context.Background()))
	startCoordinator(t, c)
	ctx := context.Background()

	msg := DeltaMessage{
		Address: "0xfake",
		Version: 42,
		Changes: []domain.WriteSetChange{reserveChange("0xfake", "A/B", 1_000_000_000, 4_000_000_000)},
	}

	require.NoError(t, c.Submit(ctx, msg))
	once, err := c.Pairs(ctx, 0, 10)
	require.NoError(t, err)
	routesOnce, err := c.Query(ctx, routeAC())
	require.NoError(t, err)

	require.NoError(t, c.Submit(ctx, msg))
	twice, err := c.Pairs(ctx, 0, 10)
	require.NoError(t, err)
	routesTwice, err := c.Query(ctx, routeAC())
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, routesOnce, routesTwice)
	require.NotNil(t, once.Items[0].Reserves)
	assert.Equal(t, [2]uint64{1_000_000_000, 4_000_000_000}, *once.Items[0].Reserves)
	assert.Equal(t, uint64(42), once.Items[0].Version)
}

func TestCoordinatorDeltaInvalidatesRouteCache(t *testing.T) {
	c := newTestCoordinator(t, newFakeRegistry(), DefaultOptions())
	require.NoError(t, c.Initialize(context.Background()))
	startCoordinator(t, c)
	ctx := context.Background()

	before, err := c.Query(ctx, routeAC())
	require.NoError(t, err)

	require.NoError(t, c.Submit(ctx, DeltaMessage{
		Address: "0xfake",
		Changes: []domain.WriteSetChange{reserveChange("0xfake", "B/C", 2_000_000_000, 6_000_000_000)},
	}))

	after, err := c.Query(ctx, routeAC())
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Greater(t, after[0].Output(), before[0].Output())
	assert.Equal(t, before[0].Amounts[1], after[0].Amounts[1])
}

func TestCoordinatorWatchList(t *testing.T) {
	c := newTestCoordinator(t, newFakeRegistry(), DefaultOptions())
	require.NoError(t, c.Initialize(context.Background()))
	startCoordinator(t, c)

	list, err := c.WatchList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xfake"}, list)
}

func TestCoordinatorQueryTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.QueryTimeout = 20 * time.Millisecond
	c := newTestCoordinator(t, newFakeRegistry(), opts)

	// not running: the request is buffered but never answered
	_, err := c.Query(context.Background(), routeAC())
	assert.ErrorIs(t, err, ErrQueryTimeout)
}

func TestCoordinatorStopped(t *testing.T) {
	c := newTestCoordinator(t, newFakeRegistry(), DefaultOptions())
	require.NoError(t, c.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- c.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-stopped, context.Canceled)

	_, err := c.Query(context.Background(), routeAC())
	assert.ErrorIs(t, err, ErrCoordinatorStopped)
	assert.ErrorIs(t, c.Submit(context.Background(), DeltaMessage{}), ErrCoordinatorStopped)
}

func TestCoordinatorInitializeFailures(t *testing.T) {
	t.Run("unsupported curve", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.pairs[1].Curve = domain.CurveUnknown
		c := newTestCoordinator(t, reg, DefaultOptions())
		assert.ErrorIs(t, c.Initialize(context.Background()), domain.ErrUnsupportedCurve)
	})

	t.Run("discovery", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.discoverErr = errors.New("page failed")
		c := newTestCoordinator(t, reg, DefaultOptions())
		assert.Error(t, c.Initialize(context.Background()))
	})

	t.Run("snapshot", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.snapshotErr = registry.ErrSnapshot
		c := newTestCoordinator(t, reg, DefaultOptions())
		assert.ErrorIs(t, c.Initialize(context.Background()), registry.ErrSnapshot)
	})
}

type memoryStore struct {
	saved   []domain.PairDescriptor
	loadErr error
}

func (m *memoryStore) LoadPairs(network string) ([]domain.PairDescriptor, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []domain.PairDescriptor
	for _, d := range m.saved {
		if d.Network == network {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryStore) SavePairs(pairs []domain.PairDescriptor) error {
	m.saved = append([]domain.PairDescriptor(nil), pairs...)
	return nil
}

func TestCoordinatorPairSnapshotSkipsDiscovery(t *testing.T) {
	store := &memoryStore{}
	opts := DefaultOptions()
	opts.Store = store

	first := newFakeRegistry()
	require.NoError(t, newTestCoordinator(t, first, opts).Initialize(context.Background()))
	assert.Equal(t, 1, first.discoverCalls)
	require.Len(t, store.saved, 2)

	second := newFakeRegistry()
	c := newTestCoordinator(t, second, opts)
	require.NoError(t, c.Initialize(context.Background()))
	assert.Zero(t, second.discoverCalls)
	startCoordinator(t, c)

	routes, err := c.Query(context.Background(), routeAC())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, uint64(2_979_081), routes[0].Output())

	broken := newFakeRegistry()
	opts.Store = &memoryStore{loadErr: errors.New("corrupt")}
	require.NoError(t, newTestCoordinator(t, broken, opts).Initialize(context.Background()))
	assert.Equal(t, 1, broken.discoverCalls)
}

func TestCoordinatorHopClamp(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultHops = 1
	opts.MaxHops = 2
	c := newTestCoordinator(t, newFakeRegistry(), opts)

	assert.Equal(t, 1, c.normalize(RouteRequest{}).MaxHops)
	assert.Equal(t, 2, c.normalize(RouteRequest{MaxHops: 9}).MaxHops)
}

func TestCoordinatorExhaustiveMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = router.ModeExhaustive
	c := newTestCoordinator(t, newFakeRegistry(), opts)
	require.NoError(t, c.Initialize(context.Background()))
	startCoordinator(t, c)

	routes, err := c.Query(context.Background(), routeAC())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, uint64(2_979_081), routes[0].Output())
}
