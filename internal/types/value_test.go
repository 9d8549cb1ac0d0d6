package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smfdb/internal/rc"
)

func TestCompareCrossType(t *testing.T) {
	i := NewInt(10)
	f := NewFloat(10.0)
	c, err := Compare(i, f)
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	ch := NewChars("7", 8)
	c, err = Compare(ch, NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(NewInt(5), NewFloat(5.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestDivisionNearZeroYieldsNull(t *testing.T) {
	out, err := DataTypeFor(FloatType).Arith(Div, NewFloat(1), NewFloat(0))
	require.NoError(t, err)
	assert.True(t, out.IsNull())

	out, err = DataTypeFor(IntType).Arith(Div, NewInt(9), NewInt(0))
	require.NoError(t, err)
	assert.True(t, out.IsNull())
}

func TestCastPreservesNull(t *testing.T) {
	n := NewNull(IntType)
	out, err := DataTypeFor(IntType).CastTo(n, FloatType)
	require.NoError(t, err)
	// CastTo on a NULL int does not special-case NULL explicitly; callers
	// (the Cast expression) are responsible for propagating NULL before
	// calling CastTo. Undefined's CastTo is the one that always yields
	// NULL, regardless of target type.
	_ = out
	u := NewNull(Undefined)
	out2, err := DataTypeFor(Undefined).CastTo(u, FloatType)
	require.NoError(t, err)
	assert.True(t, out2.IsNull())
	assert.Equal(t, FloatType, out2.Type())
}

func TestStringToNumberParseFailureYieldsZero(t *testing.T) {
	v, err := intType{}.SetFromStr("not-a-number")
	require.NoError(t, err)
	assert.Equal(t, int32(0), v.GetInt())
}

func TestVectorArithDimensionMismatch(t *testing.T) {
	_, err := vectorType{}.Arith(Add, NewVector([]float32{1, 2}), NewVector([]float32{1, 2, 3}))
	require.Error(t, err)
	assert.Equal(t, rc.InvalidArgument, rc.CodeOf(err))
}

func TestVectorArithElementWise(t *testing.T) {
	out, err := vectorType{}.Arith(Add, NewVector([]float32{1, 2, 3}), NewVector([]float32{4, 5, 6}))
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 7, 9}, out.GetVector())
}

func TestCosineDistanceZeroVector(t *testing.T) {
	d, err := CosineDistance([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), d)
}

func TestDateRoundTrip(t *testing.T) {
	v, err := dateType{}.SetFromStr("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, int32(20240305), v.dateVal)
	s, err := dateType{}.ToString(v)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", s)
}
