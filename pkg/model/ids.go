package model

import (
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// AgentID identifies an agent. It is stored as its canonical UUID string so that
// equality filters and the unique index compare the same representation.
type AgentID uuid.UUID

// EncryptionKeyID identifies an encryption key registered by an agent.
type EncryptionKeyID uuid.UUID

// VerificationKeyID identifies an agent's signature verification key.
type VerificationKeyID uuid.UUID

// NewAgentID returns a random (version 4) AgentID.
func NewAgentID() AgentID { return AgentID(uuid.New()) }

// NewEncryptionKeyID returns a random (version 4) EncryptionKeyID.
func NewEncryptionKeyID() EncryptionKeyID { return EncryptionKeyID(uuid.New()) }

// NewVerificationKeyID returns a random (version 4) VerificationKeyID.
func NewVerificationKeyID() VerificationKeyID { return VerificationKeyID(uuid.New()) }

// ParseAgentID parses the canonical string form of an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, fmt.Errorf("invalid agent id %q: %w", s, err)
	}
	return AgentID(u), nil
}

// ParseEncryptionKeyID parses the canonical string form of an EncryptionKeyID.
func ParseEncryptionKeyID(s string) (EncryptionKeyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EncryptionKeyID{}, fmt.Errorf("invalid encryption key id %q: %w", s, err)
	}
	return EncryptionKeyID(u), nil
}

// String returns the canonical hyphenated form.
func (id AgentID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the nil UUID.
func (id AgentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler, so JSON and map keys use the
// canonical string.
func (id AgentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AgentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// MarshalBSONValue stores id as a BSON string.
func (id AgentID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalUUIDValue(uuid.UUID(id))
}

// UnmarshalBSONValue reads id back from a BSON string.
func (id *AgentID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalUUIDValue((*uuid.UUID)(id), t, data)
}

// String returns the canonical hyphenated form.
func (id EncryptionKeyID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the nil UUID.
func (id EncryptionKeyID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler, so JSON and map keys use the
// canonical string.
func (id EncryptionKeyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EncryptionKeyID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// MarshalBSONValue stores id as a BSON string.
func (id EncryptionKeyID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalUUIDValue(uuid.UUID(id))
}

// UnmarshalBSONValue reads id back from a BSON string.
func (id *EncryptionKeyID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalUUIDValue((*uuid.UUID)(id), t, data)
}

// String returns the canonical hyphenated form.
func (id VerificationKeyID) String() string { return uuid.UUID(id).String() }

// MarshalText implements encoding.TextMarshaler, so JSON and map keys use the
// canonical string.
func (id VerificationKeyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *VerificationKeyID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// MarshalBSONValue stores id as a BSON string.
func (id VerificationKeyID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalUUIDValue(uuid.UUID(id))
}

// UnmarshalBSONValue reads id back from a BSON string.
func (id *VerificationKeyID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalUUIDValue((*uuid.UUID)(id), t, data)
}

func marshalUUIDValue(u uuid.UUID) (bsontype.Type, []byte, error) {
	return bson.MarshalValue(u.String())
}

func unmarshalUUIDValue(dst *uuid.UUID, t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("expected string identifier, got BSON %s", t)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	*dst = u
	return nil
}
