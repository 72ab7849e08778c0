package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultConnectTimeout = 10 * time.Second

// Provider owns a MongoDB client shared by every store built on it.
type Provider struct {
	client *mongo.Client
	dbName string
}

// NewProvider connects to uri and verifies the connection with a ping.
// A zero connectTimeout falls back to the URI setting or 10s.
func NewProvider(ctx context.Context, uri string, dbName string, connectTimeout time.Duration) (*Provider, error) {
	clientOpts := options.Client().ApplyURI(uri)

	if connectTimeout > 0 {
		clientOpts.SetConnectTimeout(connectTimeout)
	} else if clientOpts.ConnectTimeout == nil {
		clientOpts.SetConnectTimeout(defaultConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %w", model.ErrConnection, err)
	}

	return &Provider{
		client: client,
		dbName: dbName,
	}, nil
}

// Client returns the underlying MongoDB client
func (p *Provider) Client() *mongo.Client {
	return p.client
}

// Database returns the handle of the configured database
func (p *Provider) Database() *mongo.Database {
	return p.client.Database(p.dbName)
}

// DatabaseName returns the default database name for this provider
func (p *Provider) DatabaseName() string {
	return p.dbName
}

// Close closes the MongoDB connection
func (p *Provider) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}
