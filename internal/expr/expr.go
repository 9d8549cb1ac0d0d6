package expr

import (
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// Kind tags an Expression's concrete variant, the sum-type discriminant
// every other part of the planner/executor switches on.
type Kind int

const (
	KindStar Kind = iota
	KindUnboundField
	KindField
	KindValue
	KindCast
	KindComparison
	KindConjunction
	KindArithmetic
	KindUnboundAggregate
	KindAggregate
	KindSubquery
	KindIn
	KindExists
	KindDistance
)

// Expression is the common interface every expression-tree node
// implements: evaluate against one Tuple, report the static value type
// it produces, and support the structural operations the planner needs
// (copying, equality, and reporting which base tables it touches).
type Expression interface {
	Kind() Kind
	ValueType() types.AttrType
	GetValue(tuple *Tuple) (types.Value, error)
	GetInvolvedTables() []string
	Equal(other Expression) bool
	Copy() Expression
	String() string
}

// ColumnEvaluator is implemented by expressions that can evaluate
// themselves across a whole Chunk at once rather than tuple-by-tuple
// (currently only FieldExpr). The exec operators do not call it; they
// evaluate every expression per tuple with GetValue.
type ColumnEvaluator interface {
	GetColumn(chunk *Chunk) (Column, error)
}

// ConstFolder is implemented by expressions whose value does not depend
// on any tuple (currently only ValueExpr). The rewriter and planner do
// not call it; no constant folding is performed.
type ConstFolder interface {
	TryGetValue() (types.Value, bool)
}

// ---- Star ----

// StarExpr is `*` or `table.*`. It has no scalar value of its own —
// binding expands it into one FieldExpr per visible column.
type StarExpr struct {
	Table string // empty for a bare `*`
}

func (e *StarExpr) Kind() Kind           { return KindStar }
func (e *StarExpr) ValueType() types.AttrType { return types.Undefined }
func (e *StarExpr) GetValue(*Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "star expression has no scalar value; it must be expanded at bind time")
}
func (e *StarExpr) GetInvolvedTables() []string {
	if e.Table == "" {
		return nil
	}
	return []string{e.Table}
}
func (e *StarExpr) Equal(other Expression) bool {
	o, ok := other.(*StarExpr)
	return ok && o.Table == e.Table
}
func (e *StarExpr) Copy() Expression { c := *e; return &c }
func (e *StarExpr) String() string {
	if e.Table == "" {
		return "*"
	}
	return e.Table + ".*"
}

// ---- UnboundField ----

// UnboundFieldExpr names a column by text before binding resolves it to
// a concrete table/field/type triple.
type UnboundFieldExpr struct {
	Table string
	Field string
}

func (e *UnboundFieldExpr) Kind() Kind               { return KindUnboundField }
func (e *UnboundFieldExpr) ValueType() types.AttrType { return types.Undefined }
func (e *UnboundFieldExpr) GetValue(*Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "unbound field %s must be resolved by the binder before evaluation", e.String())
}
func (e *UnboundFieldExpr) GetInvolvedTables() []string {
	if e.Table == "" {
		return nil
	}
	return []string{e.Table}
}
func (e *UnboundFieldExpr) Equal(other Expression) bool {
	o, ok := other.(*UnboundFieldExpr)
	return ok && o.Table == e.Table && o.Field == e.Field
}
func (e *UnboundFieldExpr) Copy() Expression { c := *e; return &c }
func (e *UnboundFieldExpr) String() string {
	if e.Table == "" {
		return e.Field
	}
	return e.Table + "." + e.Field
}

// ---- Field ----

// FieldExpr is a bound column reference: a concrete FieldRef plus its
// declared type.
type FieldExpr struct {
	Ref FieldRef
	Typ types.AttrType
}

func (e *FieldExpr) Kind() Kind               { return KindField }
func (e *FieldExpr) ValueType() types.AttrType { return e.Typ }
func (e *FieldExpr) GetValue(tuple *Tuple) (types.Value, error) {
	v, ok := tuple.Get(e.Ref.Table, e.Ref.Field)
	if !ok {
		return types.Value{}, rc.Errorf(rc.SchemaFieldNotExist, "field %s not present in tuple", e.Ref)
	}
	return v, nil
}
func (e *FieldExpr) GetColumn(chunk *Chunk) (Column, error) {
	col := chunk.ColumnByRef(e.Ref)
	if col == nil {
		return Column{}, rc.Errorf(rc.SchemaFieldNotExist, "field %s not present in chunk", e.Ref)
	}
	return *col, nil
}
func (e *FieldExpr) GetInvolvedTables() []string {
	if e.Ref.Table == "" {
		return nil
	}
	return []string{e.Ref.Table}
}
func (e *FieldExpr) Equal(other Expression) bool {
	o, ok := other.(*FieldExpr)
	return ok && o.Ref == e.Ref
}
func (e *FieldExpr) Copy() Expression { c := *e; return &c }
func (e *FieldExpr) String() string   { return e.Ref.String() }

// ---- Value ----

// ValueExpr is a literal constant.
type ValueExpr struct {
	Val types.Value
}

func (e *ValueExpr) Kind() Kind               { return KindValue }
func (e *ValueExpr) ValueType() types.AttrType { return e.Val.Type() }
func (e *ValueExpr) GetValue(*Tuple) (types.Value, error) { return e.Val, nil }
func (e *ValueExpr) TryGetValue() (types.Value, bool)     { return e.Val, true }
func (e *ValueExpr) GetInvolvedTables() []string          { return nil }
func (e *ValueExpr) Equal(other Expression) bool {
	o, ok := other.(*ValueExpr)
	if !ok {
		return false
	}
	c, err := types.Compare(e.Val, o.Val)
	return err == nil && c == 0 && e.Val.IsNull() == o.Val.IsNull()
}
func (e *ValueExpr) Copy() Expression { return &ValueExpr{Val: e.Val.Clone()} }
func (e *ValueExpr) String() string   { return e.Val.GetString() }

// ---- Cast ----

// CastExpr converts Inner's value to Target at evaluation time.
type CastExpr struct {
	Inner  Expression
	Target types.AttrType
}

func (e *CastExpr) Kind() Kind               { return KindCast }
func (e *CastExpr) ValueType() types.AttrType { return e.Target }
func (e *CastExpr) GetValue(tuple *Tuple) (types.Value, error) {
	v, err := e.Inner.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull() {
		return types.NewNull(e.Target), nil
	}
	return types.DataTypeFor(v.Type()).CastTo(v, e.Target)
}
func (e *CastExpr) GetInvolvedTables() []string { return e.Inner.GetInvolvedTables() }
func (e *CastExpr) Equal(other Expression) bool {
	o, ok := other.(*CastExpr)
	return ok && o.Target == e.Target && o.Inner.Equal(e.Inner)
}
func (e *CastExpr) Copy() Expression {
	return &CastExpr{Inner: e.Inner.Copy(), Target: e.Target}
}
func (e *CastExpr) String() string { return "CAST(" + e.Inner.String() + " AS " + e.Target.String() + ")" }
