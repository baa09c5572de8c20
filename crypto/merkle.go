package crypto

import (
	"gitlab.com/NebulousLabs/merkletree"
)

// A MerkleTree accumulates leaves and produces the Merkle root of
// everything pushed so far. The coordinator uses one per upload to commit
// to the digest of every shard produced by a split.
type MerkleTree struct {
	merkletree.Tree
}

// NewTree returns a MerkleTree that hashes with the Scatter hash.
func NewTree() *MerkleTree {
	return &MerkleTree{*merkletree.New(NewHash())}
}

// PushHash adds a digest to the tree as the next leaf.
func (t *MerkleTree) PushHash(h Hash) {
	t.Push(h[:])
}

// Root returns the Merkle root of everything pushed so far. The zero Hash
// is returned for an empty tree.
func (t *MerkleTree) Root() (h Hash) {
	copy(h[:], t.Tree.Root())
	return
}

// MerkleRoot calculates the Merkle root of a set of digests.
func MerkleRoot(leaves []Hash) Hash {
	tree := NewTree()
	for _, leaf := range leaves {
		tree.PushHash(leaf)
	}
	return tree.Root()
}
