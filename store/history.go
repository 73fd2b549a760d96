package store

import (
	"os"
	"reflect"
	"sort"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/pagevar/pagevar"
)

// ErrEmptyID when a record has no id
var ErrEmptyID = errors.New("record id is empty")

var _ Storer = (*History)(nil)

// History of extraction records. Each tagged record field is its own key,
// <predicate>:<id>, holding a msgpack value.
type History struct {
	Store      *badger.DB
	filepath   string
	predicates []*PredicateField
}

// NewHistory stored under filepath
func NewHistory(filepath string) *History {
	return &History{filepath: filepath}
}

// Init opens (or creates) the store
func (h *History) Init() error {
	var err error

	if err = os.MkdirAll(h.filepath, 0700); err != nil {
		return err
	}

	h.Store, err = badger.Open(badger.DefaultOptions(h.filepath).WithLogger(nil))
	if err != nil {
		return errors.Wrap(err, "failed to open history")
	}

	h.predicates = discoverPredicates(&pagevar.Record{})
	return nil
}

// Add a record, replacing any with the same id
func (h *History) Add(rec *pagevar.Record) error {
	if rec.ID == "" {
		return ErrEmptyID
	}

	return h.Store.Update(func(txn *badger.Txn) error {
		rv := reflect.ValueOf(*rec)
		for i := 0; i < len(h.predicates); i++ {
			key := MakeKey([]byte(rec.ID), h.predicates[i].name)

			bytez, err := Encode(rv, h.predicates[i].index)
			if err != nil {
				return errors.Wrapf(err, "failed to encode %s", h.predicates[i].name)
			}
			// key = <predicate>:<id>, value = msgpack'd bytes
			if err := txn.Set(key, bytez); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get the record with id
func (h *History) Get(id string) (*pagevar.Record, error) {
	var rec *pagevar.Record
	err := h.Store.View(func(txn *badger.Txn) error {
		var err error
		rec, err = DecodeRecord(txn, h.predicates, []byte(id))
		return err
	})
	return rec, err
}

// Find up to limit records of variable (all variables if empty), newest first
func (h *History) Find(variable string, limit int) ([]*pagevar.Record, error) {
	// make sure limit is sane
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	records := make([]*pagevar.Record, 0)
	err := h.Store.View(func(txn *badger.Txn) error {
		ids, err := VariableIterator(txn, variable, 0)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rec, err := DecodeRecord(txn, h.predicates, id)
			if err != nil {
				log.Warn().Err(err).Str("id", string(id)).Msg("skipping partial record")
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Started.After(records[j].Started)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close the store
func (h *History) Close() error {
	if h.Store == nil {
		return nil
	}
	return h.Store.Close()
}
