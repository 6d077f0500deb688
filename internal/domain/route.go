package domain

// Route is an acyclic sequence of hops. Path has one more entry than Pairs and
// Amounts[i] is the amount held at Path[i]. Routes are never mutated once
// built; Extend always copies.
type Route struct {
	Pairs    []PairID
	PairKeys []string
	Path     []string
	Amounts  []uint64
}

// NewSeedRoute is the zero-hop route holding amount of token.
func NewSeedRoute(token string, amount uint64) Route {
	return Route{
		Path:    []string{token},
		Amounts: []uint64{amount},
	}
}

func (r Route) Hops() int {
	return len(r.Pairs)
}

func (r Route) Terminal() string {
	return r.Path[len(r.Path)-1]
}

func (r Route) Output() uint64 {
	return r.Amounts[len(r.Amounts)-1]
}

// UsesPairKey reports whether a non-empty key already appears in the route.
func (r Route) UsesPairKey(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range r.PairKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Visits reports whether token is anywhere on the path.
func (r Route) Visits(token string) bool {
	for _, t := range r.Path {
		if t == token {
			return true
		}
	}
	return false
}

// Extend returns a new route one hop longer.
func (r Route) Extend(id PairID, pairKey, token string, amount uint64) Route {
	n := len(r.Pairs)
	next := Route{
		Pairs:    make([]PairID, n, n+1),
		PairKeys: make([]string, n, n+1),
		Path:     make([]string, n+1, n+2),
		Amounts:  make([]uint64, n+1, n+2),
	}
	copy(next.Pairs, r.Pairs)
	copy(next.PairKeys, r.PairKeys)
	copy(next.Path, r.Path)
	copy(next.Amounts, r.Amounts)

	next.Pairs = append(next.Pairs, id)
	next.PairKeys = append(next.PairKeys, pairKey)
	next.Path = append(next.Path, token)
	next.Amounts = append(next.Amounts, amount)
	return next
}
