package types

import (
	"strconv"
	"strings"
	"time"

	"smfdb/internal/rc"
)

// ArithOp enumerates the arithmetic operators DataType.Arith dispatches
// on.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Negative
)

// DataType is the per-AttrType strategy object: a singleton routing
// compare/cast/arithmetic to type-specific logic via an enum + lookup
// table rather than a virtual-method hierarchy.
type DataType interface {
	Type() AttrType
	// Compare returns <0, 0, >0 comparing a against b. NULL operands are
	// handled by the caller (Comparison expression), not here.
	Compare(a, b Value) (int, error)
	CastTo(v Value, target AttrType) (Value, error)
	CastCost(target AttrType) int
	Arith(op ArithOp, a, b Value) (Value, error)
	ToString(v Value) (string, error)
	SetFromStr(s string) (Value, error)
}

var registry = map[AttrType]DataType{
	IntType:    intType{},
	FloatType:  floatType{},
	BoolType:   boolType{},
	DateType:   dateType{},
	CharType:   charType{},
	TextType:   textType{},
	VectorType: vectorType{},
}

// DataTypeFor returns the singleton DataType for t. Undefined routes
// through undefinedType, whose only job is turning anything into a
// typed NULL.
func DataTypeFor(t AttrType) DataType {
	if dt, ok := registry[t]; ok {
		return dt
	}
	return undefinedType{}
}

// Compare dispatches to the left operand's DataType, except that NULL
// on either side is handled by callers (Comparison expr), not here.
// CHAR-vs-numeric and INT-vs-FLOAT promotion happen inside the
// type-specific Compare bodies below, matching original_source's
// char_type.cpp / integer_type.cpp.
func Compare(a, b Value) (int, error) {
	return DataTypeFor(a.Type()).Compare(a, b)
}

// ---- undefined ----

type undefinedType struct{}

func (undefinedType) Type() AttrType { return Undefined }
func (undefinedType) Compare(a, b Value) (int, error) {
	return 0, rc.Errorf(rc.Unsupported, "cannot compare UNDEFINED values")
}
func (undefinedType) CastTo(v Value, target AttrType) (Value, error) {
	return NewNull(target), nil
}
func (undefinedType) CastCost(target AttrType) int { return 0 }
func (undefinedType) Arith(op ArithOp, a, b Value) (Value, error) {
	return NewNull(Undefined), nil
}
func (undefinedType) ToString(v Value) (string, error) { return "", nil }
func (undefinedType) SetFromStr(s string) (Value, error) {
	return NewNull(Undefined), nil
}

// ---- int ----

type intType struct{}

func (intType) Type() AttrType { return IntType }

func (intType) Compare(a, b Value) (int, error) {
	switch b.Type() {
	case IntType:
		return cmpInt64(int64(a.GetInt()), int64(b.GetInt())), nil
	case FloatType:
		return cmpFloat64(float64(a.GetInt()), float64(b.GetFloat())), nil
	case CharType, TextType:
		return cmpFloat64(float64(a.GetInt()), float64(b.GetFloat())), nil
	default:
		return 0, rc.Errorf(rc.SchemaFieldTypeMismatch, "cannot compare INT with %s", b.Type())
	}
}

func (intType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case IntType:
		return v, nil
	case FloatType:
		return NewFloat(float32(v.GetInt())), nil
	case BoolType:
		return NewBool(v.GetInt() != 0), nil
	case CharType:
		return NewChars(v.GetString(), len(v.GetString())), nil
	case TextType:
		return NewText(v.GetString()), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from INT to %s", target)
	}
}

func (intType) CastCost(target AttrType) int {
	switch target {
	case IntType:
		return 0
	case FloatType:
		return 1
	case BoolType:
		return 1
	case CharType, TextType:
		return 2
	default:
		return maxCastCost
	}
}

func (intType) Arith(op ArithOp, a, b Value) (Value, error) {
	if op == Negative {
		return NewInt(-a.GetInt()), nil
	}
	if b.Type() == VectorType {
		return vectorType{}.Arith(op, a, b)
	}
	if b.Type() == FloatType {
		return floatType{}.Arith(op, mustCast(a, FloatType), b)
	}
	x, y := a.GetInt(), b.GetInt()
	switch op {
	case Add:
		return NewInt(x + y), nil
	case Sub:
		return NewInt(x - y), nil
	case Mul:
		return NewInt(x * y), nil
	case Div:
		if absF(float64(y)) < epsilon {
			return NewNull(IntType), nil
		}
		return NewInt(x / y), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported arithmetic op")
	}
}

func (intType) ToString(v Value) (string, error) { return v.GetString(), nil }

func (intType) SetFromStr(s string) (Value, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return NewInt(0), nil // MySQL-compatible: fail-to-parse -> 0
	}
	return NewInt(int32(n)), nil
}

// ---- float ----

type floatType struct{}

func (floatType) Type() AttrType { return FloatType }

func (floatType) Compare(a, b Value) (int, error) {
	switch b.Type() {
	case IntType, FloatType, CharType, TextType:
		return cmpFloat64(float64(a.GetFloat()), float64(b.GetFloat())), nil
	default:
		return 0, rc.Errorf(rc.SchemaFieldTypeMismatch, "cannot compare FLOAT with %s", b.Type())
	}
}

func (floatType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case FloatType:
		return v, nil
	case IntType:
		return NewInt(int32(v.GetFloat())), nil
	case BoolType:
		return NewBool(v.GetFloat() != 0), nil
	case CharType:
		return NewChars(v.GetString(), len(v.GetString())), nil
	case TextType:
		return NewText(v.GetString()), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from FLOAT to %s", target)
	}
}

func (floatType) CastCost(target AttrType) int {
	switch target {
	case FloatType:
		return 0
	case IntType:
		return 2 // lossy, costs more than INT->FLOAT
	case BoolType:
		return 1
	case CharType, TextType:
		return 2
	default:
		return maxCastCost
	}
}

func (floatType) Arith(op ArithOp, a, b Value) (Value, error) {
	if op == Negative {
		return NewFloat(-a.GetFloat()), nil
	}
	if b.Type() == VectorType {
		return vectorType{}.Arith(op, a, b)
	}
	x, y := a.GetFloat(), b.GetFloat()
	switch op {
	case Add:
		return NewFloat(x + y), nil
	case Sub:
		return NewFloat(x - y), nil
	case Mul:
		return NewFloat(x * y), nil
	case Div:
		if absF(float64(y)) < epsilon {
			return NewNull(FloatType), nil
		}
		return NewFloat(x / y), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported arithmetic op")
	}
}

func (floatType) ToString(v Value) (string, error) { return v.GetString(), nil }

func (floatType) SetFromStr(s string) (Value, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return NewFloat(0), nil
	}
	return NewFloat(float32(n)), nil
}

// ---- bool ----

type boolType struct{}

func (boolType) Type() AttrType { return BoolType }

func (boolType) Compare(a, b Value) (int, error) {
	x, y := a.GetBool(), b.GetBool()
	if x == y {
		return 0, nil
	}
	if !x {
		return -1, nil
	}
	return 1, nil
}

func (boolType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case BoolType:
		return v, nil
	case IntType:
		return NewInt(v.GetInt()), nil
	case FloatType:
		return NewFloat(v.GetFloat()), nil
	case CharType:
		return NewChars(v.GetString(), len(v.GetString())), nil
	case TextType:
		return NewText(v.GetString()), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from BOOLEAN to %s", target)
	}
}

func (boolType) CastCost(target AttrType) int {
	switch target {
	case BoolType:
		return 0
	case IntType, FloatType:
		return 1
	case CharType, TextType:
		return 2
	default:
		return maxCastCost
	}
}

func (boolType) Arith(op ArithOp, a, b Value) (Value, error) {
	return Value{}, rc.Errorf(rc.Unsupported, "arithmetic is not defined on BOOLEAN")
}

func (boolType) ToString(v Value) (string, error) { return v.GetString(), nil }

func (boolType) SetFromStr(s string) (Value, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	return NewBool(s == "true" || s == "1"), nil
}

// ---- date ----

type dateType struct{}

func (dateType) Type() AttrType { return DateType }

func (dateType) Compare(a, b Value) (int, error) {
	if b.Type() != DateType {
		return 0, rc.Errorf(rc.SchemaFieldTypeMismatch, "cannot compare DATE with %s", b.Type())
	}
	return cmpInt64(int64(a.dateVal), int64(b.dateVal)), nil
}

func (dateType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case DateType:
		return v, nil
	case CharType:
		return NewChars(v.GetString(), len(v.GetString())), nil
	case TextType:
		return NewText(v.GetString()), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from DATE to %s", target)
	}
}

func (dateType) CastCost(target AttrType) int {
	switch target {
	case DateType:
		return 0
	case CharType, TextType:
		return 1
	default:
		return maxCastCost
	}
}

func (dateType) Arith(op ArithOp, a, b Value) (Value, error) {
	return Value{}, rc.Errorf(rc.Unsupported, "arithmetic is not defined on DATE")
}

func (dateType) ToString(v Value) (string, error) { return v.GetString(), nil }

// SetFromStr parses a 'YYYY-MM-DD' literal into the packed Y*10000 +
// M*100 + D representation.
func (dateType) SetFromStr(s string) (Value, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Value{}, rc.Wrap(rc.InvalidArgument, err, "invalid DATE literal %q", s)
	}
	packed := int32(t.Year())*10000 + int32(t.Month())*100 + int32(t.Day())
	return NewDate(packed), nil
}

// ---- char ----

type charType struct{}

func (charType) Type() AttrType { return CharType }

// Compare mirrors original_source/char_type.cpp: string-vs-string uses
// byte comparison, string-vs-numeric coerces the CHAR side.
func (charType) Compare(a, b Value) (int, error) {
	switch b.Type() {
	case CharType, TextType:
		return strings.Compare(string(a.bytes), string(b.bytes)), nil
	case IntType:
		return cmpInt64(int64(a.GetInt()), int64(b.GetInt())), nil
	case FloatType:
		return cmpFloat64(float64(a.GetFloat()), float64(b.GetFloat())), nil
	default:
		return 0, rc.Errorf(rc.SchemaFieldTypeMismatch, "cannot compare CHAR with %s", b.Type())
	}
}

func (charType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case CharType:
		return v.Clone(), nil
	case TextType:
		return NewText(string(v.bytes)), nil
	case IntType:
		return intType{}.SetFromStr(string(v.bytes))
	case FloatType:
		return floatType{}.SetFromStr(string(v.bytes))
	case DateType:
		return dateType{}.SetFromStr(string(v.bytes))
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from CHAR to %s", target)
	}
}

func (charType) CastCost(target AttrType) int {
	switch target {
	case CharType:
		return 0
	case DateType, IntType, FloatType:
		return 1
	case TextType:
		return 1
	default:
		return maxCastCost
	}
}

func (charType) Arith(op ArithOp, a, b Value) (Value, error) {
	return Value{}, rc.Errorf(rc.Unsupported, "arithmetic is not defined on CHAR")
}

func (charType) ToString(v Value) (string, error) { return string(v.bytes), nil }

func (charType) SetFromStr(s string) (Value, error) { return NewChars(s, len(s)), nil }

// ---- text ----

type textType struct{}

func (textType) Type() AttrType { return TextType }

func (textType) Compare(a, b Value) (int, error) {
	switch b.Type() {
	case TextType, CharType:
		return strings.Compare(string(a.bytes), string(b.bytes)), nil
	default:
		return 0, rc.Errorf(rc.SchemaFieldTypeMismatch, "cannot compare TEXT with %s", b.Type())
	}
}

func (textType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case TextType:
		return v.Clone(), nil
	case CharType:
		return NewChars(string(v.bytes), len(v.bytes)), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from TEXT to %s", target)
	}
}

func (textType) CastCost(target AttrType) int {
	switch target {
	case TextType:
		return 0
	case CharType:
		return 1
	default:
		return maxCastCost
	}
}

func (textType) Arith(op ArithOp, a, b Value) (Value, error) {
	return Value{}, rc.Errorf(rc.Unsupported, "arithmetic is not defined on TEXT")
}

func (textType) ToString(v Value) (string, error) { return string(v.bytes), nil }

func (textType) SetFromStr(s string) (Value, error) { return NewText(s), nil }

// ---- vector ----

type vectorType struct{}

func (vectorType) Type() AttrType { return VectorType }

func (vectorType) Compare(a, b Value) (int, error) {
	return 0, rc.Errorf(rc.Unsupported, "VECTOR does not support ordering comparisons")
}

func (vectorType) CastTo(v Value, target AttrType) (Value, error) {
	switch target {
	case VectorType:
		return v.Clone(), nil
	default:
		return Value{}, rc.Errorf(rc.Unimplemented, "unsupported cast from VECTOR to %s", target)
	}
}

func (vectorType) CastCost(target AttrType) int {
	if target == VectorType {
		return 0
	}
	return maxCastCost
}

// Arith implements element-wise +, -, * for equal-dimension vectors.
// The non-VECTOR side, if any, is broadcast as a scalar.
func (vectorType) Arith(op ArithOp, a, b Value) (Value, error) {
	if op == Negative {
		va := a.GetVector()
		out := make([]float32, len(va))
		for i, x := range va {
			out[i] = -x
		}
		return NewVector(out), nil
	}
	if op == Div {
		return Value{}, rc.Errorf(rc.Unsupported, "division is not defined on VECTOR")
	}

	var va, vb []float32
	switch {
	case a.Type() == VectorType && b.Type() == VectorType:
		va, vb = a.GetVector(), b.GetVector()
		if len(va) != len(vb) {
			return Value{}, rc.Errorf(rc.InvalidArgument, "vector dimension mismatch: %d vs %d", len(va), len(vb))
		}
	case a.Type() == VectorType:
		va = a.GetVector()
		vb = broadcast(b.GetFloat(), len(va))
	case b.Type() == VectorType:
		vb = b.GetVector()
		va = broadcast(a.GetFloat(), len(vb))
	default:
		return Value{}, rc.Errorf(rc.Internal, "vectorType.Arith called without a VECTOR operand")
	}

	out := make([]float32, len(va))
	for i := range out {
		switch op {
		case Add:
			out[i] = va[i] + vb[i]
		case Sub:
			out[i] = va[i] - vb[i]
		case Mul:
			out[i] = va[i] * vb[i]
		}
	}
	return NewVector(out), nil
}

func broadcast(x float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = x
	}
	return out
}

func (vectorType) ToString(v Value) (string, error) { return v.GetString(), nil }

func (vectorType) SetFromStr(s string) (Value, error) {
	return Value{}, rc.Errorf(rc.Unsupported, "VECTOR has no textual literal form outside [v1, v2, ...]")
}

// ---- shared helpers ----

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func mustCast(v Value, target AttrType) Value {
	out, err := DataTypeFor(v.Type()).CastTo(v, target)
	if err != nil {
		return NewNull(target)
	}
	return out
}
