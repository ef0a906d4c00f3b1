package model

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio_BiggerSideAndScale(t *testing.T) {
	ratio, bigger, err := Ratio(uint256.NewInt(5), uint256.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, AssetA, bigger)
	assert.Equal(t, uint256.NewInt(5).Mul(uint256.NewInt(5), Scale).String(), ratio.String())
}

func TestRatio_TieBreaksToAssetB(t *testing.T) {
	ratio, bigger, err := Ratio(uint256.NewInt(1), uint256.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, AssetB, bigger)
	assert.Equal(t, Scale.String(), ratio.String())
}

func TestRatio_ZeroAmountRejected(t *testing.T) {
	_, _, err := Ratio(uint256.NewInt(0), uint256.NewInt(1))
	assert.Error(t, err)
}

// TestBetter_S2NoCross reproduces scenario S2: incoming bid (a=4,b=1)
// against resting ask (a=5,b=1,bigger=A) does not cross.
func TestBetter_S2NoCross(t *testing.T) {
	restingRatio, restingBigger, err := Ratio(uint256.NewInt(5), uint256.NewInt(1))
	require.NoError(t, err)
	incomingRatio, incomingBigger, err := Ratio(uint256.NewInt(4), uint256.NewInt(1))
	require.NoError(t, err)

	crosses := Better(restingRatio, restingBigger, incomingRatio, incomingBigger, false, false)
	assert.False(t, crosses, "resting ask must not be at least as good as a worse incoming bid")
}

// TestBetter_S3Cross reproduces scenario S3: incoming bid (a=1,b=1) against
// the same resting ask crosses.
func TestBetter_S3Cross(t *testing.T) {
	restingRatio, restingBigger, err := Ratio(uint256.NewInt(5), uint256.NewInt(1))
	require.NoError(t, err)
	incomingRatio, incomingBigger, err := Ratio(uint256.NewInt(1), uint256.NewInt(1))
	require.NoError(t, err)

	crosses := Better(restingRatio, restingBigger, incomingRatio, incomingBigger, false, false)
	assert.True(t, crosses)
}

func TestCounterpart_RestoresIdentity(t *testing.T) {
	ratio, bigger, err := Ratio(uint256.NewInt(5), uint256.NewInt(1))
	require.NoError(t, err)

	buyingAmt, err := Counterpart(uint256.NewInt(5), ratio, bigger, AssetA)
	require.NoError(t, err)
	assert.Equal(t, "1", buyingAmt.String())
}

func TestBetter_CrossCaseBiggerBDominates(t *testing.T) {
	// bigger_token=B (cheap ask, <=1 A per B) must beat bigger_token=A
	// (expensive ask, >1 A per B) regardless of the numeric ratio value.
	cheapRatio, cheapBigger, err := Ratio(uint256.NewInt(1), uint256.NewInt(2)) // 2 B per 1 A -> bigger=B
	require.NoError(t, err)
	expensiveRatio, expensiveBigger, err := Ratio(uint256.NewInt(100), uint256.NewInt(1)) // bigger=A
	require.NoError(t, err)

	assert.True(t, Better(cheapRatio, cheapBigger, expensiveRatio, expensiveBigger, true, true))
	assert.False(t, Better(expensiveRatio, expensiveBigger, cheapRatio, cheapBigger, true, true))
}
