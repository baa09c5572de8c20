package crypto

// hash.go supplies the hashing functions used throughout Scatter. SHA-256
// is the only supported algorithm. Ledger addresses, settlement receipts,
// and shard digests all commit to its exact output, so the algorithm is
// deliberately not pluggable.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"

	"gitlab.com/NebulousLabs/errors"
)

const (
	// HashSize is the length of a Hash in bytes.
	HashSize = sha256.Size
)

type (
	// Hash is a SHA-256 digest.
	Hash [HashSize]byte
)

var (
	// ErrHashWrongLen is the error when encoded value has the wrong length
	// to be a hash.
	ErrHashWrongLen = errors.New("encoded value has the wrong length to be a hash")
)

// NewHash returns a new instance of the hash used by Scatter.
func NewHash() hash.Hash {
	return sha256.New()
}

// HashAll takes a set of byte slices as input, concatenates them, and
// returns the hash of the result.
func HashAll(objs ...[]byte) Hash {
	h := NewHash()
	for _, obj := range objs {
		h.Write(obj)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashBytes takes a byte slice and returns the hash of the slice.
func HashBytes(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// String prints the hash in hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON marshals a hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes the json hex string of the hash.
func (h *Hash) UnmarshalJSON(b []byte) error {
	// *2 because there are 2 hex characters per byte, +2 for the surrounding
	// quotation marks.
	if len(b) != HashSize*2+2 {
		return ErrHashWrongLen
	}
	return h.LoadString(string(b[1 : len(b)-1]))
}

// LoadString takes a hex string representation of a hash and fills out the
// fields of the hash.
func (h *Hash) LoadString(s string) error {
	if len(s) != HashSize*2 {
		return ErrHashWrongLen
	}
	hBytes, err := hex.DecodeString(s)
	if err != nil {
		return errors.AddContext(err, "could not unmarshal hash")
	}
	copy(h[:], hBytes)
	return nil
}
