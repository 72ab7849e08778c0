package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syntrixbase/sdastore/internal/core/storage/dao"
	"github.com/syntrixbase/sdastore/internal/core/storage/types"
	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// DefaultAgentsCollection is used when no collection name is configured
	DefaultAgentsCollection = "agents"

	agentKeyField = "id"
	keysField     = "keys"
)

// keyEntry is one element of an agent document's keys list.
type keyEntry = model.Labelled[model.EncryptionKeyID, model.SignedEncryptionKey]

// agentDocument is the stored shape of an agent record.
type agentDocument struct {
	ID      model.AgentID  `bson:"id"`
	Agent   *model.Agent   `bson:"agent"`
	Profile *model.Profile `bson:"profile,omitempty"`
	Keys    []keyEntry     `bson:"keys,omitempty"`
}

func (d *agentDocument) Validate() error {
	if d.Agent == nil {
		return errors.New("agent record is missing the agent field")
	}
	return nil
}

type agentsStore struct {
	dao    *dao.Dao[model.AgentID, agentDocument]
	logger *slog.Logger
}

// NewAgentsStore returns an AgentsStore over the named collection of db and makes
// sure the unique index on the agent id exists. The caller owns db's client.
func NewAgentsStore(ctx context.Context, db *mongo.Database, collectionName string, logger *slog.Logger) (types.AgentsStore, error) {
	if collectionName == "" {
		collectionName = DefaultAgentsCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &agentsStore{
		dao:    dao.New[model.AgentID, agentDocument](db.Collection(collectionName), agentKeyField),
		logger: logger.With("component", "agents-store", "collection", collectionName),
	}

	if err := s.dao.EnsureUniqueIndex(ctx, agentKeyField); err != nil {
		return nil, err
	}
	s.logger.Info("Agents collection ready", "unique_index", agentKeyField)
	return s, nil
}

func (s *agentsStore) Ping(ctx context.Context) error {
	return s.dao.Ping(ctx)
}

func (s *agentsStore) CreateAgent(ctx context.Context, agent *model.Agent) error {
	if agent == nil {
		return fmt.Errorf("create agent: %w: nil agent", model.ErrEncoding)
	}
	update, err := dao.Set("agent", agent)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return s.dao.ModisertByID(ctx, agent.ID, update)
}

func (s *agentsStore) GetAgent(ctx context.Context, id model.AgentID) (*model.Agent, error) {
	doc, err := s.dao.GetByID(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Agent, nil
}

func (s *agentsStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	if profile == nil {
		return fmt.Errorf("upsert profile: %w: nil profile", model.ErrEncoding)
	}
	update, err := dao.Set("profile", profile)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return s.dao.ModifyByID(ctx, profile.Owner, update)
}

func (s *agentsStore) GetProfile(ctx context.Context, owner model.AgentID) (*model.Profile, error) {
	doc, err := s.dao.GetByID(ctx, owner)
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Profile, nil
}

func (s *agentsStore) CreateEncryptionKey(ctx context.Context, key *model.SignedEncryptionKey) error {
	if key == nil {
		return fmt.Errorf("create encryption key: %w: nil key", model.ErrEncoding)
	}
	replace, err := dao.ReplaceElement(keysField, "id", key.ID(), model.Label(key.ID(), *key))
	if err != nil {
		return fmt.Errorf("create encryption key: %w", err)
	}
	if err := s.dao.ModifyByID(ctx, key.Signer, replace); err != nil {
		return err
	}
	s.logger.Debug("Encryption key registered", "signer", key.Signer, "key", key.ID())
	return nil
}

func (s *agentsStore) GetEncryptionKey(ctx context.Context, id model.EncryptionKeyID) (*model.SignedEncryptionKey, error) {
	keyID, err := dao.EncodeKey(id)
	if err != nil {
		return nil, fmt.Errorf("get encryption key: %w", err)
	}
	doc, err := s.dao.Get(ctx, bson.D{{Key: keysField + ".id", Value: keyID}})
	if err != nil || doc == nil {
		return nil, err
	}
	for _, entry := range doc.Keys {
		if entry.ID == id {
			found := entry.Body
			return &found, nil
		}
	}
	return nil, nil
}

func (s *agentsStore) SuggestCommittee(ctx context.Context) ([]model.ClerkCandidate, error) {
	cur, err := s.dao.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	return dao.Collect(ctx, cur, func(doc agentDocument) model.ClerkCandidate {
		keys := make([]model.EncryptionKeyID, 0, len(doc.Keys))
		for _, entry := range doc.Keys {
			keys = append(keys, entry.ID)
		}
		return model.ClerkCandidate{ID: doc.ID, Keys: keys}
	})
}

// Count returns the number of agent records.
func (s *agentsStore) Count(ctx context.Context) (int64, error) {
	return s.dao.Count(ctx, nil)
}

// UniqueIndexes lists the fields of the collection that carry a unique index.
func (s *agentsStore) UniqueIndexes(ctx context.Context) ([]string, error) {
	return s.dao.UniqueIndexes(ctx)
}

// KeyField returns the field agent records are keyed by.
func (s *agentsStore) KeyField() string {
	return s.dao.KeyField()
}

func (s *agentsStore) Close(ctx context.Context) error {
	return nil
}
