package types

import (
	"context"

	"github.com/syntrixbase/sdastore/pkg/model"
)

// BaseStore is implemented by every store backed by an external engine.
type BaseStore interface {
	// Ping checks that the backing engine is reachable
	Ping(ctx context.Context) error
}

// AgentsStore defines the storage operations of the agent directory.
//
// Lookups return nil (or an empty slice) with a nil error when the requested
// entity does not exist; errors are reserved for engine and shape failures.
type AgentsStore interface {
	BaseStore

	// CreateAgent stores the agent, replacing any previous agent payload with the
	// same id. Profile and keys of an existing record are left untouched.
	CreateAgent(ctx context.Context, agent *model.Agent) error

	// GetAgent returns the agent with the given id
	GetAgent(ctx context.Context, id model.AgentID) (*model.Agent, error)

	// UpsertProfile replaces the profile of profile.Owner.
	// It does nothing if the owner has no record.
	UpsertProfile(ctx context.Context, profile *model.Profile) error

	// GetProfile returns the profile of owner, or nil if the owner has no record
	// or never set a profile.
	GetProfile(ctx context.Context, owner model.AgentID) (*model.Profile, error)

	// CreateEncryptionKey registers key under key.Signer, replacing any key the
	// signer registered earlier with the same id. The replacement is a single
	// write, so concurrent registrations of one id leave exactly one entry.
	// It does nothing if the signer has no record.
	CreateEncryptionKey(ctx context.Context, key *model.SignedEncryptionKey) error

	// GetEncryptionKey looks up a key by id across all agents
	GetEncryptionKey(ctx context.Context, id model.EncryptionKeyID) (*model.SignedEncryptionKey, error)

	// SuggestCommittee lists every agent with the ids of its registered keys.
	// The order is unspecified.
	SuggestCommittee(ctx context.Context) ([]model.ClerkCandidate, error)

	// Close releases resources held by the store
	Close(ctx context.Context) error
}

// AgentCounter is implemented by agent stores that can report their size.
type AgentCounter interface {
	Count(ctx context.Context) (int64, error)
}

// IndexReporter is implemented by agent stores that can list their unique
// indexes. KeyField names the field records are keyed by.
type IndexReporter interface {
	UniqueIndexes(ctx context.Context) ([]string, error)
	KeyField() string
}
