// Package memory provides an in-process AgentsStore for tests and local tooling.
//
// Records are kept in their encoded document form and decoded from a copy, so
// values passed in and returned never alias the store's state. Writes follow
// the same per-record semantics as the MongoDB store. A key replacement filters
// and appends under one write lock.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/syntrixbase/sdastore/internal/core/storage/dao"
	"github.com/syntrixbase/sdastore/internal/core/storage/types"
	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("memory store closed")

type keyEntry = model.Labelled[model.EncryptionKeyID, model.SignedEncryptionKey]

type record struct {
	ID      model.AgentID  `bson:"id"`
	Agent   *model.Agent   `bson:"agent"`
	Profile *model.Profile `bson:"profile,omitempty"`
	Keys    []keyEntry     `bson:"keys,omitempty"`
}

func (r *record) Validate() error {
	if r.Agent == nil {
		return errors.New("agent record is missing the agent field")
	}
	return nil
}

// AgentsStore is a goroutine-safe in-memory agent directory.
type AgentsStore struct {
	mu      sync.RWMutex
	records map[model.AgentID]bson.Raw
	order   []model.AgentID
	closed  atomic.Bool
}

var (
	_ types.AgentsStore   = (*AgentsStore)(nil)
	_ types.AgentCounter  = (*AgentsStore)(nil)
	_ types.IndexReporter = (*AgentsStore)(nil)
)

// NewAgentsStore returns an empty store.
func NewAgentsStore() *AgentsStore {
	return &AgentsStore{
		records: make(map[model.AgentID]bson.Raw),
	}
}

func (s *AgentsStore) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", model.ErrConnection, err)
	}
	return nil
}

func (s *AgentsStore) CreateAgent(ctx context.Context, agent *model.Agent) error {
	if agent == nil {
		return fmt.Errorf("create agent: %w: nil agent", model.ErrEncoding)
	}
	return s.modify(ctx, agent.ID, true, func(r *record) {
		a := *agent
		r.Agent = &a
	})
}

func (s *AgentsStore) GetAgent(ctx context.Context, id model.AgentID) (*model.Agent, error) {
	r, err := s.load(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Agent, nil
}

func (s *AgentsStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	if profile == nil {
		return fmt.Errorf("upsert profile: %w: nil profile", model.ErrEncoding)
	}
	return s.modify(ctx, profile.Owner, false, func(r *record) {
		p := *profile
		r.Profile = &p
	})
}

func (s *AgentsStore) GetProfile(ctx context.Context, owner model.AgentID) (*model.Profile, error) {
	r, err := s.load(ctx, owner)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Profile, nil
}

func (s *AgentsStore) CreateEncryptionKey(ctx context.Context, key *model.SignedEncryptionKey) error {
	if key == nil {
		return fmt.Errorf("create encryption key: %w: nil key", model.ErrEncoding)
	}
	id := key.ID()
	return s.modify(ctx, key.Signer, false, func(r *record) {
		kept := make([]keyEntry, 0, len(r.Keys)+1)
		for _, entry := range r.Keys {
			if entry.ID != id {
				kept = append(kept, entry)
			}
		}
		r.Keys = append(kept, model.Label(id, *key))
	})
}

func (s *AgentsStore) GetEncryptionKey(ctx context.Context, id model.EncryptionKeyID) (*model.SignedEncryptionKey, error) {
	var found *model.SignedEncryptionKey
	err := s.scan(ctx, func(r *record) bool {
		for _, entry := range r.Keys {
			if entry.ID == id {
				body := entry.Body
				found = &body
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *AgentsStore) SuggestCommittee(ctx context.Context) ([]model.ClerkCandidate, error) {
	out := []model.ClerkCandidate{}
	err := s.scan(ctx, func(r *record) bool {
		keys := make([]model.EncryptionKeyID, 0, len(r.Keys))
		for _, entry := range r.Keys {
			keys = append(keys, entry.ID)
		}
		out = append(out, model.ClerkCandidate{ID: r.ID, Keys: keys})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of agent records.
func (s *AgentsStore) Count(ctx context.Context) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, fmt.Errorf("count: %w: %w", model.ErrStorage, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// UniqueIndexes reports the agent id as the only unique field; the map key
// enforces it.
func (s *AgentsStore) UniqueIndexes(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, fmt.Errorf("list indexes: %w: %w", model.ErrSetup, err)
	}
	return []string{s.KeyField()}, nil
}

// KeyField returns the field agent records are keyed by.
func (s *AgentsStore) KeyField() string {
	return "id"
}

func (s *AgentsStore) Close(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}

func (s *AgentsStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return model.WrapError(ctx.Err())
}

// modify applies fn to the record of id under the write lock. A missing record
// is created only when upsert is set; otherwise the call does nothing.
func (s *AgentsStore) modify(ctx context.Context, id model.AgentID, upsert bool, fn func(*record)) error {
	if err := s.check(ctx); err != nil {
		return fmt.Errorf("modify: %w: %w", model.ErrStorage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var r record
	raw, ok := s.records[id]
	switch {
	case ok:
		if err := bson.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("modify: %w: %w", model.ErrDecoding, err)
		}
	case upsert:
		r.ID = id
	default:
		return nil
	}

	fn(&r)

	encoded, err := dao.Encode(&r)
	if err != nil {
		return fmt.Errorf("modify: %w", err)
	}
	if !ok {
		s.order = append(s.order, id)
	}
	s.records[id] = encoded
	return nil
}

func (s *AgentsStore) load(ctx context.Context, id model.AgentID) (*record, error) {
	if err := s.check(ctx); err != nil {
		return nil, fmt.Errorf("get: %w: %w", model.ErrStorage, err)
	}

	s.mu.RLock()
	raw, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	r, err := dao.Decode[record](bytes.Clone(raw))
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return &r, nil
}

// scan visits records in insertion order until fn returns false. The first
// record that fails to decode aborts the scan.
func (s *AgentsStore) scan(ctx context.Context, fn func(*record) bool) error {
	if err := s.check(ctx); err != nil {
		return fmt.Errorf("find: %w: %w", model.ErrStorage, err)
	}

	s.mu.RLock()
	raws := make([]bson.Raw, 0, len(s.order))
	for _, id := range s.order {
		raws = append(raws, s.records[id])
	}
	s.mu.RUnlock()

	for _, raw := range raws {
		r, err := dao.Decode[record](bytes.Clone(raw))
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		if !fn(&r) {
			return nil
		}
	}
	return nil
}

