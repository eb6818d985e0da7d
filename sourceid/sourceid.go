// Package sourceid constructs the (name, hash) pair that identifies a
// broker process on the network for the lifetime of the process.
package sourceid

import (
	"crypto/rand"

	"ev3broker/wire"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SourceId is a node's identity: a user-supplied name (truncated to
// wire.SourceNameLen on encode) paired with a random hash drawn from a
// non-deterministic system source. Neither field changes after
// construction.
type SourceId struct {
	name string
	hash string
}

// New constructs a SourceId for name, generating a fresh
// wire.SourceHashLen-character hash from crypto/rand — the Go analogue
// of std::random_device, not a seeded PRNG.
func New(name string) (SourceId, error) {
	hash, err := randomHash(wire.SourceHashLen)
	if err != nil {
		return SourceId{}, err
	}
	return SourceId{name: name, hash: hash}, nil
}

// Name returns the source name as supplied at construction (not yet
// truncated/padded — that happens only at wire encode time).
func (s SourceId) Name() string { return s.name }

// Hash returns the random per-process hash.
func (s SourceId) Hash() string { return s.hash }

func randomHash(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
