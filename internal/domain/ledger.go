package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LedgerInfo is the root ledger endpoint response.
type LedgerInfo struct {
	ChainID       uint64 `json:"chain_id"`
	LedgerVersion string `json:"ledger_version"`
}

type Event struct {
	Version        string          `json:"version"`
	SequenceNumber string          `json:"sequence_number"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
}

// MoveResource is an on-ledger resource: its full Move type and its fields.
type MoveResource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WriteSetChange is one storage mutation of a transaction. Resource writes
// carry the written value in Data.
type WriteSetChange struct {
	Type         string        `json:"type"`
	Address      string        `json:"address"`
	StateKeyHash string        `json:"state_key_hash,omitempty"`
	Data         *MoveResource `json:"data,omitempty"`
}

type Transaction struct {
	Version string           `json:"version"`
	Hash    string           `json:"hash,omitempty"`
	Changes []WriteSetChange `json:"changes"`
}

// ParseU64 parses a decimal ledger string.
func ParseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse u64 %q: %w", s, err)
	}
	return v, nil
}
