package db

import (
	"context"
	"fmt"
)

type Options struct {
	Driver        string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	MasterKey     string
}

// Open builds the configured backend, wrapped with encryption when a master
// key is set.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)
	switch opts.Driver {
	case "", "memory":
		store = NewMemory()
	case "postgres":
		store, err = NewPostgres(ctx, opts.DatabaseURL)
	case "mongo":
		store, err = NewMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.MasterKey == "" {
		return store, nil
	}
	wrapped, err := Encrypted(store, opts.MasterKey)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return wrapped, nil
}
