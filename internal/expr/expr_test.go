package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smfdb/internal/types"
)

func TestComparisonEqAndNullPropagation(t *testing.T) {
	tup := NewTuple(nil, nil)
	eq := &ComparisonExpr{Op: OpEq, Left: &ValueExpr{Val: types.NewInt(1)}, Right: &ValueExpr{Val: types.NewInt(1)}}
	v, err := eq.GetValue(tup)
	require.NoError(t, err)
	require.True(t, v.GetBool())

	withNull := &ComparisonExpr{Op: OpEq, Left: &ValueExpr{Val: types.NewNull(types.IntType)}, Right: &ValueExpr{Val: types.NewInt(1)}}
	v, err = withNull.GetValue(tup)
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestLikeMatch(t *testing.T) {
	require.True(t, likeMatch("hello", "h%"))
	require.True(t, likeMatch("hello", "h_llo"))
	require.False(t, likeMatch("hello", "world"))
	require.True(t, likeMatch("abc", "%"))
}

func TestConjunctionShortCircuitsAndPropagatesNull(t *testing.T) {
	tup := NewTuple(nil, nil)
	and := &ConjunctionExpr{Op: ConjAnd, Children: []Expression{
		&ValueExpr{Val: types.NewBool(false)},
		&ValueExpr{Val: types.NewNull(types.BoolType)},
	}}
	v, err := and.GetValue(tup)
	require.NoError(t, err)
	require.False(t, v.IsNull())
	require.False(t, v.GetBool())

	or := &ConjunctionExpr{Op: ConjOr, Children: []Expression{
		&ValueExpr{Val: types.NewNull(types.BoolType)},
		&ValueExpr{Val: types.NewBool(false)},
	}}
	v, err = or.GetValue(tup)
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestArithmeticTypePromotion(t *testing.T) {
	addInts := &ArithmeticExpr{Op: types.Add, Left: &ValueExpr{Val: types.NewInt(2)}, Right: &ValueExpr{Val: types.NewInt(3)}}
	require.Equal(t, types.IntType, addInts.ValueType())
	v, err := addInts.GetValue(NewTuple(nil, nil))
	require.NoError(t, err)
	require.Equal(t, int32(5), v.GetInt())

	divInts := &ArithmeticExpr{Op: types.Div, Left: &ValueExpr{Val: types.NewInt(7)}, Right: &ValueExpr{Val: types.NewInt(2)}}
	require.Equal(t, types.FloatType, divInts.ValueType())
}

func TestAggregatorSumCountAvgSkipNull(t *testing.T) {
	agg := NewAggregator(AggSum, types.IntType)
	require.NoError(t, agg.Accumulate(types.NewInt(3)))
	require.NoError(t, agg.Accumulate(types.NewNull(types.IntType)))
	require.NoError(t, agg.Accumulate(types.NewInt(4)))
	sum, err := agg.Evaluate()
	require.NoError(t, err)
	require.Equal(t, int32(7), sum.GetInt())

	count := NewAggregator(AggCount, types.IntType)
	require.NoError(t, count.Accumulate(types.NewInt(1)))
	require.NoError(t, count.Accumulate(types.NewNull(types.IntType)))
	cv, err := count.Evaluate()
	require.NoError(t, err)
	require.Equal(t, int32(1), cv.GetInt())

	avg := NewAggregator(AggAvg, types.IntType)
	require.NoError(t, avg.Accumulate(types.NewInt(2)))
	require.NoError(t, avg.Accumulate(types.NewInt(4)))
	av, err := avg.Evaluate()
	require.NoError(t, err)
	require.Equal(t, types.FloatType, av.Type())
	require.InDelta(t, 3.0, float64(av.GetFloat()), 1e-6)
}

func TestAggregatorMaxEmptyIsNull(t *testing.T) {
	maxAgg := NewAggregator(AggMax, types.IntType)
	v, err := maxAgg.Evaluate()
	require.NoError(t, err)
	require.True(t, v.IsNull())

	require.NoError(t, maxAgg.Accumulate(types.NewInt(5)))
	require.NoError(t, maxAgg.Accumulate(types.NewInt(9)))
	require.NoError(t, maxAgg.Accumulate(types.NewInt(1)))
	v, err = maxAgg.Evaluate()
	require.NoError(t, err)
	require.Equal(t, int32(9), v.GetInt())
}

func TestDistanceFunctionL2(t *testing.T) {
	d := &DistanceFunctionExpr{
		Op:    DistanceL2,
		Left:  &ValueExpr{Val: types.NewVector([]float32{0, 0})},
		Right: &ValueExpr{Val: types.NewVector([]float32{3, 4})},
	}
	v, err := d.GetValue(NewTuple(nil, nil))
	require.NoError(t, err)
	require.InDelta(t, 5.0, float64(v.GetFloat()), 1e-5)
}

type fakeRunner struct {
	rows []types.Value
}

func (f *fakeRunner) Run(*Tuple) ([]types.Value, error) { return f.rows, nil }

func TestInExprMembership(t *testing.T) {
	runner := &fakeRunner{rows: []types.Value{types.NewInt(1), types.NewInt(2)}}
	in := &InExpr{Left: &ValueExpr{Val: types.NewInt(2)}, Runner: runner}
	v, err := in.GetValue(NewTuple(nil, nil))
	require.NoError(t, err)
	require.True(t, v.GetBool())

	notIn := &InExpr{Left: &ValueExpr{Val: types.NewInt(3)}, Runner: runner, Not: true}
	v, err = notIn.GetValue(NewTuple(nil, nil))
	require.NoError(t, err)
	require.True(t, v.GetBool())
}

func TestExistsExpr(t *testing.T) {
	empty := &fakeRunner{}
	e := &ExistsExpr{Runner: empty}
	v, err := e.GetValue(NewTuple(nil, nil))
	require.NoError(t, err)
	require.False(t, v.GetBool())

	nonEmpty := &fakeRunner{rows: []types.Value{types.NewInt(1)}}
	e2 := &ExistsExpr{Runner: nonEmpty}
	v, err = e2.GetValue(NewTuple(nil, nil))
	require.NoError(t, err)
	require.True(t, v.GetBool())
}

func TestTupleAndChunk(t *testing.T) {
	schema := []FieldRef{{Table: "t", Field: "a"}, {Table: "t", Field: "b"}}
	tup := NewTuple(schema, []types.Value{types.NewInt(1), types.NewInt(2)})
	v, ok := tup.Get("t", "a")
	require.True(t, ok)
	require.Equal(t, int32(1), v.GetInt())

	chunk := NewChunk(schema)
	require.NoError(t, chunk.Append([]types.Value{types.NewInt(10), types.NewInt(20)}))
	require.NoError(t, chunk.Append([]types.Value{types.NewInt(30), types.NewInt(40)}))
	require.Equal(t, 2, chunk.RowCount())
	row1 := chunk.Tuple(1)
	v, ok = row1.Get("t", "b")
	require.True(t, ok)
	require.Equal(t, int32(40), v.GetInt())
}
