// Package types implements smfdb's polymorphic value model and its
// type-dispatched compare/cast/arithmetic rules: a tagged AttrType enum
// plus a dispatch table, in place of a virtual-method hierarchy.
package types

import "fmt"

// AttrType is the tag of a Value's variant. It doubles as the DDL-level
// column type spellable in CREATE TABLE.
type AttrType int

const (
	Undefined AttrType = iota
	IntType
	FloatType
	BoolType
	DateType
	CharType
	TextType
	VectorType
)

func (t AttrType) String() string {
	switch t {
	case Undefined:
		return "UNDEFINED"
	case IntType:
		return "INT"
	case FloatType:
		return "FLOAT"
	case BoolType:
		return "BOOLEAN"
	case DateType:
		return "DATE"
	case CharType:
		return "CHAR"
	case TextType:
		return "TEXT"
	case VectorType:
		return "VECTOR"
	default:
		return fmt.Sprintf("AttrType(%d)", int(t))
	}
}

// ParseAttrType maps a DDL type keyword to an AttrType. No other package
// in the module calls it.
func ParseAttrType(name string) (AttrType, bool) {
	switch name {
	case "INT", "INTEGER":
		return IntType, true
	case "FLOAT", "DOUBLE":
		return FloatType, true
	case "BOOLEAN", "BOOL":
		return BoolType, true
	case "DATE":
		return DateType, true
	case "CHAR", "VARCHAR":
		return CharType, true
	case "TEXT":
		return TextType, true
	case "VECTOR":
		return VectorType, true
	default:
		return Undefined, false
	}
}

// TextMaxLength is the MySQL-compatible ceiling on a TEXT column's byte
// length.
const TextMaxLength = 65535

// InlineTextCapacity is the number of TEXT bytes stored inside a
// record's field slot before overflow chaining begins.
const InlineTextCapacity = 768

// epsilon is the magnitude below which a FLOAT divisor makes division
// yield NULL instead of a quotient.
const epsilon = 1e-6

// maxCastCost is the cast_cost sentinel for an unsupported cast.
const maxCastCost = int(^uint(0) >> 1)
