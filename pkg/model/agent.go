package model

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// SchemeSodium tags key material and signatures produced with libsodium primitives.
const SchemeSodium = "sodium"

// Labelled attaches an identifier to a value.
type Labelled[ID any, T any] struct {
	ID   ID `json:"id" bson:"id"`
	Body T  `json:"body" bson:"body"`
}

// Label pairs body with id.
func Label[ID any, T any](id ID, body T) Labelled[ID, T] {
	return Labelled[ID, T]{ID: id, Body: body}
}

// VerificationKey is the public half of an agent's signing key pair.
type VerificationKey struct {
	Scheme   string `json:"scheme" bson:"scheme"`
	Material []byte `json:"material" bson:"material"`
}

// EncryptionKey is a public encryption key that clerks use to receive shares.
type EncryptionKey struct {
	Scheme   string `json:"scheme" bson:"scheme"`
	Material []byte `json:"material" bson:"material"`
}

// Fingerprint returns a short, stable digest of the key material for display.
func (k EncryptionKey) Fingerprint() string {
	sum := blake3.Sum256(append([]byte(k.Scheme+":"), k.Material...))
	return hex.EncodeToString(sum[:16])
}

// Signature is an opaque signature over a payload. It is stored, never verified, here.
type Signature struct {
	Scheme   string `json:"scheme" bson:"scheme"`
	Material []byte `json:"material" bson:"material"`
}

// Agent is the identity record of a participant in the directory.
type Agent struct {
	ID              AgentID                                     `json:"id" bson:"id"`
	VerificationKey Labelled[VerificationKeyID, VerificationKey] `json:"verification_key" bson:"verification_key"`
}

// Profile is optional, free-form metadata owned by an agent.
type Profile struct {
	Owner     AgentID `json:"owner" bson:"owner"`
	Name      string  `json:"name,omitempty" bson:"name,omitempty"`
	TwitterID string  `json:"twitter_id,omitempty" bson:"twitter_id,omitempty"`
	KeybaseID string  `json:"keybase_id,omitempty" bson:"keybase_id,omitempty"`
	Website   string  `json:"website,omitempty" bson:"website,omitempty"`
}

// SignedEncryptionKey is an encryption key signed by the agent that registered it.
type SignedEncryptionKey struct {
	Signer    AgentID                                   `json:"signer" bson:"signer"`
	Signature Signature                                 `json:"signature" bson:"signature"`
	Body      Labelled[EncryptionKeyID, EncryptionKey] `json:"body" bson:"body"`
}

// ID returns the identifier of the signed key.
func (k SignedEncryptionKey) ID() EncryptionKeyID {
	return k.Body.ID
}

// ClerkCandidate is an agent that may be selected into an aggregation committee,
// together with the ids of the encryption keys it has registered.
type ClerkCandidate struct {
	ID   AgentID           `json:"id"`
	Keys []EncryptionKeyID `json:"keys"`
}
