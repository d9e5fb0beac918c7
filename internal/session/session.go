// Package session holds the per-process Session entity: a 128-bit opaque
// identifier bound to a schema digest, created at prompt start and rebuilt
// whenever the connected database's schema is refreshed.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// idSize is the number of random bytes drawn for a session id, hex-encoded
// to 32 characters.
const idSize = 16

// Session is stable for its lifetime: ID and SchemaDigest never change once
// constructed. A schema refresh produces a brand new Session (new ID,
// Primed reset to false), never mutates an existing one.
type Session struct {
	ID           string
	SchemaDigest string
	Primed       bool
}

// New draws a fresh 128-bit session id from a cryptographic RNG and binds it
// to schemaDigest (expected to already be JSON-string-escaped by the
// caller). The returned Session always starts unprimed.
func New(schemaDigest string) (*Session, error) {
	raw := make([]byte, idSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	return &Session{
		ID:           hex.EncodeToString(raw),
		SchemaDigest: schemaDigest,
		Primed:       false,
	}, nil
}
