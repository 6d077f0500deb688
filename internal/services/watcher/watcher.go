// Package watcher polls the ledger by version and forwards write-set changes
// of watched addresses to the state coordinator.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
	"github.com/hxuan190/aptos-route-engine/internal/metrics"
	"github.com/hxuan190/aptos-route-engine/internal/services/state"
)

var (
	ErrEmptyBatch     = errors.New("watcher: empty transaction batch")
	ErrMalformedBatch = errors.New("watcher: malformed transaction batch")
)

const (
	DefaultBatchSize = 10000
	DefaultInterval  = time.Second
)

// Source is the ledger side of the watcher.
type Source interface {
	Transactions(ctx context.Context, start, limit uint64) ([]domain.Transaction, error)
	LedgerVersion(ctx context.Context) (uint64, error)
}

// Sink is the coordinator side of the watcher.
type Sink interface {
	Submit(ctx context.Context, msg state.Message) error
	WatchList(ctx context.Context) ([]string, error)
}

type Watcher struct {
	source    Source
	sink      Sink
	interval  time.Duration
	batchSize uint64

	version uint64
	watched mapset.Set[string]
}

func New(source Source, sink Sink, interval time.Duration, batchSize uint64) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	return &Watcher{
		source:    source,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
		watched:   mapset.NewThreadUnsafeSet[string](),
	}
}

// Version is the next ledger version to fetch.
func (w *Watcher) Version() uint64 {
	return w.version
}

func (w *Watcher) SetVersion(v uint64) {
	w.version = v
	metrics.LedgerVersion.Set(float64(v))
}

func (w *Watcher) SetWatchList(addresses []string) {
	w.watched = mapset.NewThreadUnsafeSet(addresses...)
}

// Run polls forever from startVersion, or from the ledger head when
// startVersion is 0. It returns only when ctx is done.
func (w *Watcher) Run(ctx context.Context, startVersion uint64) error {
	if err := w.prepare(ctx, startVersion); err != nil {
		return err
	}

	log.Info().
		Uint64("version", w.version).
		Int("watched", w.watched.Cardinality()).
		Dur("interval", w.interval).
		Msg("[Watcher] started")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("version", w.version).Msg("[Watcher] stopped")
			return ctx.Err()
		case <-timer.C:
			_ = w.Tick(ctx)
			timer.Reset(w.interval)
		}
	}
}

// prepare resolves the start version and the watch list, retrying each
// until it succeeds or ctx is done.
func (w *Watcher) prepare(ctx context.Context, startVersion uint64) error {
	if startVersion == 0 {
		err := w.retry(ctx, "ledger version", func() error {
			v, err := w.source.LedgerVersion(ctx)
			if err != nil {
				return err
			}
			startVersion = v
			return nil
		})
		if err != nil {
			return err
		}
	}
	w.SetVersion(startVersion)

	return w.retry(ctx, "watch list", func() error {
		list, err := w.sink.WatchList(ctx)
		if err != nil {
			return err
		}
		w.SetWatchList(list)
		return nil
	})
}

func (w *Watcher) retry(ctx context.Context, what string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("step", what).Msg("[Watcher] startup step failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// Tick runs one poll. On any error the version is left where it was so the
// same range is fetched again next time.
func (w *Watcher) Tick(ctx context.Context) error {
	start := time.Now()
	txns, err := w.source.Transactions(ctx, w.version, w.batchSize)
	metrics.WatcherFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WatcherFailures.WithLabelValues("fetch").Inc()
		log.Warn().Err(err).Uint64("version", w.version).Msg("[Watcher] fetch failed")
		return err
	}
	if len(txns) == 0 {
		metrics.WatcherEmptyPolls.Inc()
		log.Debug().Uint64("version", w.version).Msg("[Watcher] empty batch")
		return ErrEmptyBatch
	}

	maxVersion, err := highestVersion(txns)
	if err != nil {
		metrics.WatcherFailures.WithLabelValues("malformed").Inc()
		log.Warn().Err(err).Uint64("version", w.version).Msg("[Watcher] malformed batch")
		return err
	}

	addresses, groups := w.group(txns)
	forwarded := 0
	for _, addr := range addresses {
		changes := groups[addr]
		msg := state.DeltaMessage{Address: addr, Version: maxVersion, Changes: changes}
		if err := w.sink.Submit(ctx, msg); err != nil {
			metrics.WatcherFailures.WithLabelValues("submit").Inc()
			log.Warn().Err(err).Str("address", addr).Msg("[Watcher] submit failed")
			return err
		}
		forwarded += len(changes)
	}

	metrics.WatcherBatches.Inc()
	metrics.WatcherChanges.Add(float64(forwarded))
	w.SetVersion(maxVersion + 1)

	log.Debug().
		Int("txns", len(txns)).
		Int("addresses", len(addresses)).
		Int("changes", forwarded).
		Uint64("next_version", w.version).
		Msg("[Watcher] batch processed")
	return nil
}

// group collects changes of watched addresses, keeping first-seen address
// order and ledger order within each address.
func (w *Watcher) group(txns []domain.Transaction) ([]string, map[string][]domain.WriteSetChange) {
	var order []string
	groups := make(map[string][]domain.WriteSetChange)
	for _, txn := range txns {
		for _, c := range txn.Changes {
			if c.Address == "" || !w.watched.Contains(c.Address) {
				continue
			}
			if _, seen := groups[c.Address]; !seen {
				order = append(order, c.Address)
			}
			groups[c.Address] = append(groups[c.Address], c)
		}
	}
	return order, groups
}

func highestVersion(txns []domain.Transaction) (uint64, error) {
	var highest uint64
	for _, txn := range txns {
		v, err := domain.ParseU64(txn.Version)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
		}
		if v > highest {
			highest = v
		}
	}
	return highest, nil
}
