package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/aptos-route-engine/internal/domain"
)

const (
	PairsBucket = "pairs"

	DefaultDBPath = "./data/aptos-route-engine.db"
)

// StoredPair is one pair descriptor record. Seq keeps discovery order, which
// the route search depends on for tie-breaking.
type StoredPair struct {
	Seq        int                   `json:"seq"`
	Descriptor domain.PairDescriptor `json:"descriptor"`
}

// PairStore persists pair identity (never metadata) so a restart can skip
// discovery.
type PairStore struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewPairStore(dbPath string) (*PairStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir for %s: %w", dbPath, err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[PairStore] opened database")

	return &PairStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *PairStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func pairRecordKey(d domain.PairDescriptor) []byte {
	return []byte(d.Network + "|" + string(d.Protocol) + "|" + d.PairKey)
}

// SavePairs writes all descriptors in one batch, in the given order.
func (s *PairStore) SavePairs(pairs []domain.PairDescriptor) error {
	if len(pairs) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for i, d := range pairs {
		data, err := sonic.Marshal(StoredPair{Seq: i, Descriptor: d})
		if err != nil {
			return fmt.Errorf("failed to marshal pair %s: %w", d.PairKey, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(PairsBucket),
			Key:    pairRecordKey(d),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add pair %s to batch: %w", d.PairKey, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(pairs)).Msg("[PairStore] FAILED to execute batch")
		return err
	}

	log.Info().Int("count", len(pairs)).Msg("[PairStore] saved pair batch")
	return nil
}

// LoadPairs returns the stored descriptors of one network in saved order.
// Undecodable records are skipped.
func (s *PairStore) LoadPairs(network string) ([]domain.PairDescriptor, error) {
	data, err := s.db.List(PairsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairs: %w", err)
	}

	stored := make([]StoredPair, 0, len(data))
	unmarshalFailed := 0
	for key, value := range data {
		var rec StoredPair
		if err := sonic.Unmarshal(value, &rec); err != nil {
			log.Error().Str("key", key).Err(err).Msg("[PairStore] failed to unmarshal pair, skipping")
			unmarshalFailed++
			continue
		}
		if rec.Descriptor.Network != network {
			continue
		}
		stored = append(stored, rec)
	}

	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].Seq != stored[j].Seq {
			return stored[i].Seq < stored[j].Seq
		}
		return stored[i].Descriptor.PairKey < stored[j].Descriptor.PairKey
	})

	pairs := make([]domain.PairDescriptor, len(stored))
	for i := range stored {
		pairs[i] = stored[i].Descriptor
	}

	if unmarshalFailed > 0 {
		log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(pairs)).
			Int("unmarshal_failed", unmarshalFailed).
			Msg("[PairStore] pair loading completed with errors")
	} else {
		log.Info().
			Int("total_in_db", len(data)).
			Int("loaded", len(pairs)).
			Str("network", network).
			Msg("[PairStore] pair loading completed successfully")
	}

	return pairs, nil
}

func (s *PairStore) Count() (int, error) {
	data, err := s.db.List(PairsBucket)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
