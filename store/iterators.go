package store

import (
	badger "github.com/dgraph-io/badger/v2"
)

// VariableIterator returns up to limit record ids extracted for variable, every record
// when variable is empty. A limit of 0 is no limit.
func VariableIterator(txn *badger.Txn, variable string, limit int) ([][]byte, error) {
	ids := make([][]byte, 0)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte("variable:")})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if limit > 0 && len(ids) == limit {
			break
		}

		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}

		name, err := DecodeString(val)
		if err != nil {
			return nil, err
		}

		if variable == "" || name == variable {
			ids = append(ids, GetID(item.KeyCopy(nil)))
		}
	}
	return ids, nil
}
