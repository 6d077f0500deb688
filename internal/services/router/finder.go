package router

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

// ErrBrokenInvariant reports a graph that contradicts its own token index.
var ErrBrokenInvariant = errors.New("route finder: broken graph invariant")

// Mode selects the search strategy.
type Mode uint8

const (
	// ModeGreedy keeps one best route per token across the whole search.
	// It can discard a locally worse path that would have led to a better
	// one later.
	ModeGreedy Mode = iota
	// ModeExhaustive explores every acyclic route up to the hop limit.
	ModeExhaustive
)

// MaxExhaustiveFrontier bounds the number of partial routes kept per hop in
// exhaustive mode.
const MaxExhaustiveFrontier = 100_000

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "greedy":
		return ModeGreedy, nil
	case "exhaustive":
		return ModeExhaustive, nil
	default:
		return ModeGreedy, fmt.Errorf("unknown search mode %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeExhaustive {
		return "exhaustive"
	}
	return "greedy"
}

// GraphView is the read side of the pair graph a search runs against.
type GraphView interface {
	HasToken(token string) bool
	// PairsForToken returns pair ids in insertion order.
	PairsForToken(token string) []domain.PairID
	Pair(id domain.PairID) *domain.Pair
}

// FindBestRoutes returns completed routes from tokenIn to tokenOut sorted
// ascending by output, so the best route is last. Unknown tokens, a zero hop
// limit and tokenIn == tokenOut all yield an empty result. The only error is
// an unsupported curve on a visited pair.
func FindBestRoutes(g GraphView, tokenIn, tokenOut string, amount uint64, maxHops int, mode Mode) ([]domain.Route, error) {
	if tokenIn == tokenOut || maxHops <= 0 || !g.HasToken(tokenIn) {
		return nil, nil
	}

	var (
		completed []domain.Route
		err       error
	)
	switch mode {
	case ModeExhaustive:
		completed, err = exhaustive(g, tokenIn, tokenOut, amount, maxHops)
	default:
		completed, err = greedy(g, tokenIn, tokenOut, amount, maxHops)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].Output() < completed[j].Output()
	})
	return completed, nil
}

// Best returns the highest-output route of a FindBestRoutes result.
func Best(routes []domain.Route) (domain.Route, bool) {
	if len(routes) == 0 {
		return domain.Route{}, false
	}
	return routes[len(routes)-1], true
}

func greedy(g GraphView, tokenIn, tokenOut string, amount uint64, maxHops int) ([]domain.Route, error) {
	frontier := map[string]domain.Route{tokenIn: domain.NewSeedRoute(tokenIn, amount)}
	best := map[string]uint64{tokenIn: amount}
	var completed []domain.Route

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		next := make(map[string]domain.Route)

		for _, token := range sortedTokens(frontier) {
			route := frontier[token]
			err := forEachHop(g, route, func(id domain.PairID, pair *domain.Pair, candidate string, out uint64) {
				if out <= best[candidate] {
					return
				}
				best[candidate] = out

				extended := route.Extend(id, pair.PairKey, candidate, out)
				next[candidate] = extended
				if candidate == tokenOut {
					completed = append(completed, extended)
				}
			})
			if err != nil {
				return nil, err
			}
		}

		frontier = next
	}
	return completed, nil
}

func exhaustive(g GraphView, tokenIn, tokenOut string, amount uint64, maxHops int) ([]domain.Route, error) {
	frontier := []domain.Route{domain.NewSeedRoute(tokenIn, amount)}
	var completed []domain.Route

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []domain.Route

		for _, route := range frontier {
			err := forEachHop(g, route, func(id domain.PairID, pair *domain.Pair, candidate string, out uint64) {
				if out == 0 || route.Visits(candidate) {
					return
				}
				extended := route.Extend(id, pair.PairKey, candidate, out)
				if candidate == tokenOut {
					completed = append(completed, extended)
					return
				}
				if len(next) < MaxExhaustiveFrontier {
					next = append(next, extended)
				}
			})
			if err != nil {
				return nil, err
			}
		}

		frontier = next
	}
	return completed, nil
}

// forEachHop quotes every one-hop extension of route that does not reuse a
// pair, in pair insertion order.
func forEachHop(g GraphView, route domain.Route, visit func(domain.PairID, *domain.Pair, string, uint64)) error {
	token := route.Terminal()
	if !g.HasToken(token) {
		panic(fmt.Errorf("%w: terminal token %s is not indexed", ErrBrokenInvariant, token))
	}

	for _, id := range g.PairsForToken(token) {
		pair := g.Pair(id)
		if pair == nil || !pair.HasToken(token) {
			panic(fmt.Errorf("%w: pair %d indexed under %s", ErrBrokenInvariant, id, token))
		}
		if route.UsesPairKey(pair.PairKey) {
			continue
		}

		candidate := pair.Other(token)
		if candidate == token {
			continue
		}
		out, err := pair.OutputAmount(route.Output(), token, candidate)
		if err != nil {
			return err
		}
		visit(id, pair, candidate, out)
	}
	return nil
}

func sortedTokens(frontier map[string]domain.Route) []string {
	tokens := make([]string, 0, len(frontier))
	for t := range frontier {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}
