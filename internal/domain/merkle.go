package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// HashLeaf computes the leaf digest for one (recipient, amount) payout pair:
// SHA-256(recipient || amount as 8 little-endian bytes).
func HashLeaf(recipient Address, amount uint64) Hash32 {
	var data [40]byte
	copy(data[:32], recipient[:])
	binary.LittleEndian.PutUint64(data[32:], amount)
	return sha256.Sum256(data[:])
}

// VerifyMerkleProof checks that a leaf at leafIndex is committed to by root.
// The proof lists sibling digests ordered leaf-to-root; the index parity picks
// which side the current node hashes on at each level.
// Pure and deterministic, no side effects.
func VerifyMerkleProof(leaf Hash32, proof []Hash32, leafIndex uint16, root Hash32) bool {
	computed := leaf
	idx := int(leafIndex)

	for _, sibling := range proof {
		if idx%2 == 0 {
			computed = hashPair(computed, sibling)
		} else {
			computed = hashPair(sibling, computed)
		}
		idx /= 2
	}

	return computed == root
}

func hashPair(left, right Hash32) Hash32 {
	var data [64]byte
	copy(data[:32], left[:])
	copy(data[32:], right[:])
	return sha256.Sum256(data[:])
}

// PayoutLeaf is one (recipient, amount) entry in a cycle's disbursement set
type PayoutLeaf struct {
	Recipient Address
	Amount    uint64
}

// PayoutTree is a binary merkle tree over a cycle's payout set.
// Leaves are padded with the all-zero digest up to the next power of two, so
// every proof has uniform length and the verifier needs no odd-node cases.
type PayoutTree struct {
	levels [][]Hash32 // levels[0] is the (padded) leaf level
}

// BuildPayoutTree hashes the payout leaves and builds the full tree bottom-up
func BuildPayoutTree(leaves []PayoutLeaf) (*PayoutTree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("cannot build tree with no recipients")
	}

	level := make([]Hash32, nextPowerOfTwo(len(leaves)))
	for i, l := range leaves {
		level[i] = HashLeaf(l.Recipient, l.Amount)
	}
	// Padding slots keep the zero value of Hash32.

	tree := &PayoutTree{levels: [][]Hash32{level}}
	for len(level) > 1 {
		next := make([]Hash32, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		tree.levels = append(tree.levels, next)
		level = next
	}
	return tree, nil
}

// Root returns the tree's root digest
func (t *PayoutTree) Root() Hash32 {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for the leaf at the given index,
// ordered leaf-to-root as the verifier consumes it
func (t *PayoutTree) Proof(leafIndex uint16) ([]Hash32, error) {
	idx := int(leafIndex)
	if idx >= len(t.levels[0]) {
		return nil, ErrInvalidLeafIndex
	}

	proof := make([]Hash32, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		proof = append(proof, level[idx^1])
		idx /= 2
	}
	return proof, nil
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
