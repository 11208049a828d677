package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// InputHash fingerprints a calculation request. Identical requests hash
// identically because encoding/json writes struct fields in declaration order
// and map keys sorted.
type InputHash Hash

func (h InputHash) String() string { return Hash(h).String() }

// ComputeInputHash hashes the JSON encoding of a request value.
func ComputeInputHash(request interface{}) (InputHash, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	return InputHash(NewHash(data)), nil
}
