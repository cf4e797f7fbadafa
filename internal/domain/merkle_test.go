package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(b byte) Address {
	var a Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testPayouts(n int) []PayoutLeaf {
	leaves := make([]PayoutLeaf, n)
	for i := range leaves {
		leaves[i] = PayoutLeaf{
			Recipient: testAddress(byte(i + 1)),
			Amount:    uint64(100 * (i + 1)),
		}
	}
	return leaves
}

func TestBuildPayoutTree_Empty(t *testing.T) {
	_, err := BuildPayoutTree(nil)
	assert.Error(t, err)
}

func TestVerifyMerkleProof_RoundTrip(t *testing.T) {
	// Non-power-of-two sizes exercise the zero-hash padding
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		leaves := testPayouts(n)
		tree, err := BuildPayoutTree(leaves)
		require.NoError(t, err)

		for i, leaf := range leaves {
			proof, err := tree.Proof(uint16(i))
			require.NoError(t, err)

			ok := VerifyMerkleProof(
				HashLeaf(leaf.Recipient, leaf.Amount),
				proof,
				uint16(i),
				tree.Root(),
			)
			assert.True(t, ok, "leaf %d of %d must verify", i, n)
		}
	}
}

func TestVerifyMerkleProof_TamperedAmount(t *testing.T) {
	leaves := testPayouts(4)
	tree, err := BuildPayoutTree(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(2)
	require.NoError(t, err)

	// Claiming a different amount changes the leaf hash, so a stale proof must fail
	tampered := HashLeaf(leaves[2].Recipient, leaves[2].Amount+1)
	assert.False(t, VerifyMerkleProof(tampered, proof, 2, tree.Root()))
}

func TestVerifyMerkleProof_TamperedRecipient(t *testing.T) {
	leaves := testPayouts(4)
	tree, err := BuildPayoutTree(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(1)
	require.NoError(t, err)

	tampered := HashLeaf(testAddress(0xEE), leaves[1].Amount)
	assert.False(t, VerifyMerkleProof(tampered, proof, 1, tree.Root()))
}

func TestVerifyMerkleProof_TamperedProofElement(t *testing.T) {
	leaves := testPayouts(4)
	tree, err := BuildPayoutTree(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	proof[0][0] ^= 0x01

	leaf := HashLeaf(leaves[0].Recipient, leaves[0].Amount)
	assert.False(t, VerifyMerkleProof(leaf, proof, 0, tree.Root()))
}

func TestVerifyMerkleProof_WrongIndex(t *testing.T) {
	leaves := testPayouts(4)
	tree, err := BuildPayoutTree(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(0)
	require.NoError(t, err)

	// Same leaf and proof presented at a sibling index flips the hashing
	// order and must not verify
	leaf := HashLeaf(leaves[0].Recipient, leaves[0].Amount)
	assert.False(t, VerifyMerkleProof(leaf, proof, 1, tree.Root()))
}

func TestPayoutTree_ProofOutOfRange(t *testing.T) {
	tree, err := BuildPayoutTree(testPayouts(4))
	require.NoError(t, err)

	_, err = tree.Proof(4)
	assert.ErrorIs(t, err, ErrInvalidLeafIndex)
}

func TestVerifyMerkleProof_SingleLeaf(t *testing.T) {
	leaves := testPayouts(1)
	tree, err := BuildPayoutTree(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	require.Empty(t, proof)

	leaf := HashLeaf(leaves[0].Recipient, leaves[0].Amount)
	assert.True(t, VerifyMerkleProof(leaf, proof, 0, tree.Root()))
	assert.Equal(t, leaf, tree.Root())
}
