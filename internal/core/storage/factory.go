package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syntrixbase/sdastore/internal/core/storage/config"
	"github.com/syntrixbase/sdastore/internal/core/storage/mongo"
	"github.com/syntrixbase/sdastore/internal/core/storage/types"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// StorageFactory owns the backend connection and the stores built on it.
type StorageFactory interface {
	// Agents returns the agent record store.
	Agents() types.AgentsStore

	// Close closes the stores and then the connection.
	Close(ctx context.Context) error
}

// Provider represents a physical connection to a storage backend.
type Provider interface {
	// Database returns the handle of the configured database.
	Database() *mongodriver.Database

	// Close closes the connection.
	Close(ctx context.Context) error
}

// Dependency injection for testing
var newMongoProvider = func(ctx context.Context, cfg config.MongoConfig) (Provider, error) {
	return mongo.NewProvider(ctx, cfg.URI, cfg.DatabaseName, cfg.ConnectTimeout)
}

type factory struct {
	provider Provider
	agents   types.AgentsStore
	mu       sync.Mutex
	closed   bool
}

// NewFactory connects to the configured backend and bootstraps the agents
// collection. Everything opened so far is released when a step fails.
func NewFactory(ctx context.Context, cfg config.Config, logger *slog.Logger) (StorageFactory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &factory{}
	success := false
	defer func() {
		if !success {
			_ = f.Close(context.WithoutCancel(ctx))
		}
	}()

	p, err := newMongoProvider(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}
	f.provider = p

	agents, err := mongo.NewAgentsStore(ctx, p.Database(), cfg.Agents.Collection, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agents store: %w", err)
	}
	f.agents = agents

	success = true
	logger.Debug("Storage ready", "database", cfg.Mongo.DatabaseName, "collection", cfg.Agents.Collection)
	return f, nil
}

func (f *factory) Agents() types.AgentsStore {
	return f.agents
}

func (f *factory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	if f.agents != nil {
		if err := f.agents.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if f.provider != nil {
		if err := f.provider.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing storage: %w", err)
	}
	return nil
}
