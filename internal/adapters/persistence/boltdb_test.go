package persistence

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

func newTestStore(t *testing.T) *PairStore {
	t.Helper()
	store, err := NewPairStore(filepath.Join(t.TempDir(), "nested", "pairs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func descriptors(network string, n int) []domain.PairDescriptor {
	out := make([]domain.PairDescriptor, n)
	for i := range out {
		// keys sort in reverse of discovery order
		x := fmt.Sprintf("0x%d::coin::C", n-i)
		out[i] = domain.PairDescriptor{
			Network:     network,
			Protocol:    domain.ProtocolPancake,
			PairKey:     domain.PairKey("0xc7ef", x, "0x1::aptos_coin::AptosCoin"),
			PoolAddress: "0xc7ef",
			TokenArr:    [2]string{x, "0x1::aptos_coin::AptosCoin"},
			Curve:       domain.CurveUncorrelated.String(),
			FeeBps:      25,
		}
	}
	return out
}

func TestPairStoreRoundTripKeepsOrder(t *testing.T) {
	store := newTestStore(t)

	mainnet := descriptors("mainnet", 12)
	require.NoError(t, store.SavePairs(mainnet))
	require.NoError(t, store.SavePairs(descriptors("testnet", 3)))

	loaded, err := store.LoadPairs("mainnet")
	require.NoError(t, err)
	assert.Equal(t, mainnet, loaded)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 15, count)

	pair := domain.PairFromDescriptor(loaded[0])
	assert.Equal(t, domain.CurveUncorrelated, pair.Curve)
	assert.Nil(t, pair.Metadata)
}

func TestPairStoreEmpty(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SavePairs(nil))
	loaded, _ := store.LoadPairs("mainnet")
	assert.Empty(t, loaded)
}
