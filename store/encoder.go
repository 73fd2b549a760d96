package store

import (
	"bytes"
	"reflect"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"
	"gitlab.com/pagevar/pagevar"
)

// PredicateField is a struct field stored under its own key
type PredicateField struct {
	index int
	name  string
}

// MakeKey of a predicate and id
func MakeKey(id []byte, predicate string) []byte {
	key := []byte(predicate)
	key = append(key, byte(':'))
	key = append(key, id...)
	return key
}

// GetID of key from a pred:key
func GetID(key []byte) []byte {
	split := bytes.SplitN(key, []byte(":"), 2)
	if len(split) == 1 {
		return []byte{}
	}
	return split[1]
}

// GetPredicate from pred:key
func GetPredicate(key []byte) []byte {
	split := bytes.SplitN(key, []byte(":"), 2)
	return split[0]
}

// discoverPredicates of the struct f points to from its graph tags
func discoverPredicates(f interface{}) []*PredicateField {
	predicates := make([]*PredicateField, 0)
	rt := reflect.TypeOf(f).Elem()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		fname := f.Tag.Get("graph")
		if fname != "" {
			predicates = append(predicates, &PredicateField{
				index: i,
				name:  fname,
			})
		}
	}
	return predicates
}

// Encode a struct reflect.Value denoted by index into a msgpack []byte slice
func Encode(val reflect.Value, index int) ([]byte, error) {
	return msgpack.Marshal(val.Field(index).Interface())
}

// DecodeRecord takes a transaction and a record id and returns the record or err
func DecodeRecord(txn *badger.Txn, predicates []*PredicateField, id []byte) (*pagevar.Record, error) {
	rec := &pagevar.Record{}
	rv := reflect.ValueOf(rec).Elem()

	for _, pred := range predicates {
		item, err := txn.Get(MakeKey(id, pred.name))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", pred.name)
		}
		field := rv.Field(pred.index)
		err = item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, field.Addr().Interface())
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", pred.name)
		}
	}
	return rec, nil
}

// DecodeString value
func DecodeString(val []byte) (string, error) {
	var s string
	err := msgpack.Unmarshal(val, &s)
	return s, err
}
