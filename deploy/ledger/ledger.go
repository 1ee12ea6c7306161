// Package ledger records deployed contract addresses per network so later
// migrations can refer to earlier ones.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/buntdb"
)

const (
	deployPrefix    = "deploy:"
	migrationPrefix = "migration:"
	indexDeployedAt = "deployed_at"
)

var ErrNotFound = errors.New("no deployment recorded")

// Record is a single deployed contract. For proxied contracts Address is
// the proxy and Implementation the logic contract behind it.
type Record struct {
	Network        string `json:"network"`
	Contract       string `json:"contract"`
	Address        string `json:"address"`
	Implementation string `json:"implementation,omitempty"`
	TxHash         string `json:"tx_hash"`
	Migration      int    `json:"migration"`
	RunID          string `json:"run_id,omitempty"`
	DeployedAt     int64  `json:"deployed_at"` // unix millis
}

func (r Record) Time() time.Time {
	return time.UnixMilli(r.DeployedAt).UTC()
}

type Ledger struct {
	db *buntdb.DB
}

// Open opens or creates the ledger at path. ":memory:" keeps it in memory.
func Open(path string) (*Ledger, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.CreateIndex(indexDeployedAt, deployPrefix+"*", buntdb.IndexJSON("deployed_at")); err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func recordKey(network, contract string) string {
	return deployPrefix + network + ":" + contract
}

func (l *Ledger) Put(rec Record) error {
	if rec.Network == "" || rec.Contract == "" {
		return errors.New("record needs network and contract")
	}
	if rec.DeployedAt == 0 {
		rec.DeployedAt = time.Now().UnixMilli()
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(recordKey(rec.Network, rec.Contract), string(blob), nil)
		return err
	})
}

func (l *Ledger) Get(network, contract string) (Record, error) {
	var rec Record
	err := l.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(recordKey(network, contract))
		if errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("%w: %s on %s", ErrNotFound, contract, network)
		}
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(val), &rec)
	})
	return rec, err
}

// List returns the network's records, oldest first.
func (l *Ledger) List(network string) ([]Record, error) {
	prefix := recordKey(network, "")
	var (
		out    []Record
		decErr error
	)
	err := l.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(indexDeployedAt, func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}
			var rec Record
			if decErr = json.Unmarshal([]byte(value), &rec); decErr != nil {
				decErr = fmt.Errorf("decode %s: %w", key, decErr)
				return false
			}
			out = append(out, rec)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return out, decErr
}

// LastCompleted returns the id of the last completed migration on the
// network, or 0 when none has run.
func (l *Ledger) LastCompleted(network string) (int, error) {
	var id int
	err := l.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(migrationPrefix + network)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		id, err = strconv.Atoi(val)
		return err
	})
	return id, err
}

func (l *Ledger) SetCompleted(network string, id int) error {
	return l.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(migrationPrefix+network, strconv.Itoa(id), nil)
		return err
	})
}

// Reset forgets the network's migration progress and records.
func (l *Ledger) Reset(network string) error {
	return l.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		err := tx.AscendKeys(recordKey(network, "*"), func(key, _ string) bool {
			keys = append(keys, key)
			return true
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
		}
		if _, err := tx.Delete(migrationPrefix + network); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		return nil
	})
}
