package store

// Storer is implemented by every store
type Storer interface {
	Init() error
	Close() error
}
