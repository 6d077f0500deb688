package state

import (
	"fmt"
	"sort"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// Graph is the arena-backed pair graph. Pairs live in one table indexed by
// PairID; the token and metadata-key indexes hold ids only. A Graph is owned
// by a single goroutine and is not safe for concurrent use.
type Graph struct {
	pairs     []*domain.Pair
	byKey     map[string]domain.PairID
	byToken   map[string][]domain.PairID
	byMetaKey map[domain.Protocol]map[string][]domain.PairID

	// generation increases whenever pair reserves change.
	generation uint64
}

// KeyFunc derives a pair's metadata delta identifier.
type KeyFunc func(*domain.Pair) (string, error)

func NewGraph() *Graph {
	return &Graph{
		byKey:     make(map[string]domain.PairID),
		byToken:   make(map[string][]domain.PairID),
		byMetaKey: make(map[domain.Protocol]map[string][]domain.PairID),
	}
}

// AddPairs validates and indexes pairs in order. Pairs whose non-empty key
// is already present are skipped. Validation failures abort the whole call
// before anything is indexed.
func (g *Graph) AddPairs(pairs []*domain.Pair, key KeyFunc) (int, error) {
	metaKeys := make([]string, len(pairs))
	for i, p := range pairs {
		if err := p.Validate(); err != nil {
			return 0, err
		}
		k, err := key(p)
		if err != nil {
			return 0, err
		}
		metaKeys[i] = k
	}

	added := 0
	for i, p := range pairs {
		if p.PairKey != "" {
			if _, dup := g.byKey[p.PairKey]; dup {
				continue
			}
		}

		id := domain.PairID(len(g.pairs))
		g.pairs = append(g.pairs, p)
		if p.PairKey != "" {
			g.byKey[p.PairKey] = id
		}
		g.byToken[p.TokenArr[0]] = append(g.byToken[p.TokenArr[0]], id)
		g.byToken[p.TokenArr[1]] = append(g.byToken[p.TokenArr[1]], id)

		idx, ok := g.byMetaKey[p.Protocol]
		if !ok {
			idx = make(map[string][]domain.PairID)
			g.byMetaKey[p.Protocol] = idx
		}
		idx[metaKeys[i]] = append(idx[metaKeys[i]], id)
		added++
	}

	if added > 0 {
		g.generation++
	}
	return added, nil
}

// Apply replaces, wholesale, the metadata of every pair of protocol whose
// identifier appears in deltas. version stamps entries that carry none. It
// returns how many pairs had their reserves changed.
func (g *Graph) Apply(protocol domain.Protocol, deltas domain.MetadataDeltas, version uint64) int {
	idx := g.byMetaKey[protocol]
	if len(idx) == 0 || len(deltas) == 0 {
		return 0
	}

	changed := 0
	for key, meta := range deltas {
		if meta.Version == 0 {
			meta.Version = version
		}
		for _, id := range idx[key] {
			p := g.pairs[id]
			if p.Metadata == nil || p.Metadata.Reserves != meta.Reserves {
				changed++
			}
			p.SetMetadata(meta)
		}
	}

	if changed > 0 {
		g.generation++
	}
	return changed
}

func (g *Graph) Generation() uint64 {
	return g.generation
}

func (g *Graph) Len() int {
	return len(g.pairs)
}

func (g *Graph) HasToken(token string) bool {
	_, ok := g.byToken[token]
	return ok
}

func (g *Graph) PairsForToken(token string) []domain.PairID {
	return g.byToken[token]
}

func (g *Graph) Pair(id domain.PairID) *domain.Pair {
	if int(id) >= len(g.pairs) {
		return nil
	}
	return g.pairs[id]
}

// Descriptors returns identity records for every pair in insertion order.
func (g *Graph) Descriptors() []domain.PairDescriptor {
	out := make([]domain.PairDescriptor, len(g.pairs))
	for i, p := range g.pairs {
		out[i] = p.Descriptor()
	}
	return out
}

// Stats summarises the graph.
type Stats struct {
	Pairs        int                     `json:"pairs"`
	Tokens       int                     `json:"tokens"`
	WithMetadata int                     `json:"withMetadata"`
	ByProtocol   map[domain.Protocol]int `json:"byProtocol"`
	Generation   uint64                  `json:"generation"`
}

func (g *Graph) Stats() Stats {
	s := Stats{
		Pairs:      len(g.pairs),
		Tokens:     len(g.byToken),
		ByProtocol: make(map[domain.Protocol]int),
		Generation: g.generation,
	}
	for _, p := range g.pairs {
		s.ByProtocol[p.Protocol]++
		if p.Metadata != nil {
			s.WithMetadata++
		}
	}
	return s
}

// PairView is a copy of one pair and its current reserves.
type PairView struct {
	ID       domain.PairID         `json:"id"`
	Pair     domain.PairDescriptor `json:"pair"`
	Reserves *[2]uint64            `json:"reserves,omitempty"`
	Version  uint64                `json:"version,omitempty"`
}

type PairsPage struct {
	Total int        `json:"total"`
	Items []PairView `json:"items"`
}

// Page copies a window of pairs in insertion order.
func (g *Graph) Page(offset, limit int) PairsPage {
	page := PairsPage{Total: len(g.pairs), Items: []PairView{}}
	if offset < 0 || limit <= 0 || offset >= len(g.pairs) {
		return page
	}
	end := offset + limit
	if end > len(g.pairs) {
		end = len(g.pairs)
	}
	for i := offset; i < end; i++ {
		p := g.pairs[i]
		v := PairView{ID: domain.PairID(i), Pair: p.Descriptor()}
		if p.Metadata != nil {
			r := p.Metadata.Reserves
			v.Reserves = &r
			v.Version = p.Metadata.Version
		}
		page.Items = append(page.Items, v)
	}
	return page
}

// checkIndex verifies that the token index and the pair table agree.
func (g *Graph) checkIndex() error {
	refs := make(map[domain.PairID]int, len(g.pairs))
	tokens := make([]string, 0, len(g.byToken))
	for t := range g.byToken {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	for _, t := range tokens {
		for _, id := range g.byToken[t] {
			p := g.Pair(id)
			if p == nil || !p.HasToken(t) {
				return fmt.Errorf("token %s indexes pair %d which does not hold it", t, id)
			}
			refs[id]++
		}
	}
	for i := range g.pairs {
		if refs[domain.PairID(i)] != 2 {
			return fmt.Errorf("pair %d indexed %d times", i, refs[domain.PairID(i)])
		}
	}
	return nil
}
