package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Empty(t *testing.T) {
	out, err := Apply("unchanged", nil)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}

func TestApply_SingleReplace(t *testing.T) {
	out, err := Apply("hello world", []Mutation{Replace(0, 5, "goodbye")})
	require.NoError(t, err)
	assert.Equal(t, "goodbye world", out)
}

func TestApply_AscendingInputOrder(t *testing.T) {
	// Offsets are from the original text; application order must not
	// matter to the caller.
	muts := []Mutation{
		Replace(0, 5, "goodbye"),
		Replace(6, 11, "moon"),
	}
	out, err := Apply("hello world", muts)
	require.NoError(t, err)
	assert.Equal(t, "goodbye moon", out)
}

func TestApply_InsertAndDelete(t *testing.T) {
	out, err := Apply("abcdef", []Mutation{
		Insert(3, "XYZ"),
		Delete(0, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "cXYZdef", out)
}

func TestApply_InsertAtEnd(t *testing.T) {
	out, err := Apply("abc", []Mutation{Insert(3, "!")})
	require.NoError(t, err)
	assert.Equal(t, "abc!", out)
}

func TestApply_OutOfBoundsIsAtomic(t *testing.T) {
	muts := []Mutation{
		Replace(0, 2, "zz"),
		Delete(4, 99),
	}
	out, err := Apply("abcdef", muts)
	assert.Empty(t, out)

	var be *BoundsError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 99, be.Mutation.End)
	assert.Equal(t, 6, be.TextLen)
}

func TestApply_NegativeStartRejected(t *testing.T) {
	_, err := Apply("abc", []Mutation{Delete(-1, 2)})
	var be *BoundsError
	require.ErrorAs(t, err, &be)
}

func TestApply_InvertedRangeRejected(t *testing.T) {
	_, err := Apply("abcdef", []Mutation{Delete(4, 2)})
	var be *BoundsError
	require.ErrorAs(t, err, &be)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "insert", KindInsert.String())
	assert.Equal(t, "delete", KindDelete.String())
	assert.Equal(t, "replace", KindReplace.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
