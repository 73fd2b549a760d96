package store

// Storer is a badger backed store
type Storer interface {
	Init() error
	Close() error
}
