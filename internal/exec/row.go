package exec

import (
	"encoding/binary"
	"math"

	"smfdb/internal/catalog"
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// nullFillByte fills every byte of a NULL field's slot, matching the
// all-0xFF convention bptree.IsNullKey already uses for index keys.
// A non-NULL value whose encoding is itself all 0xFF (an INT or DATE
// of -1, a FLOAT with all bits set, a CHAR slot filled entirely with
// 0xFF bytes) has the same bytes as the sentinel and is decoded by
// DecodeRow as NULL.
const nullFillByte = 0xFF

// scalarWidth returns the fixed on-disk byte width of a non-variable
// AttrType, or 0 for CHAR/TEXT/VECTOR, whose width is declared per
// field in FieldMeta.Length instead.
func scalarWidth(t types.AttrType) int {
	switch t {
	case types.IntType, types.FloatType, types.DateType:
		return 4
	case types.BoolType:
		return 1
	default:
		return 0
	}
}

// EncodeRow packs one row of values (aligned 1:1 with fields, in the
// same order) into a fixed-width record buffer plus the texts side
// channel recordfile.RecordFileHandler expects: the full logical
// string of every non-NULL TEXT field, keyed by its position among
// fields' TEXT columns (not by overall column index) — recordfile
// itself decides inline vs overflow storage from length. NULL fields
// of every type, including TEXT, are written as an all-0xFF slot with
// no texts entry, which recordfile's existing slot-preserving path
// for an absent texts[i] entry already round-trips correctly (no zero
// byte exists to find a trailing-content boundary at, so the whole
// slot becomes "content" and is copied back unchanged).
func EncodeRow(fields []*catalog.FieldMeta, values []types.Value) (data []byte, texts map[int]string, err error) {
	if len(values) != len(fields) {
		return nil, nil, rc.Errorf(rc.InvalidArgument, "row has %d values, table has %d fields", len(values), len(fields))
	}
	size := 0
	for _, f := range fields {
		size += f.Length
	}
	data = make([]byte, size)
	textIdx := 0

	for i, f := range fields {
		v := values[i]
		slot := data[f.Offset : f.Offset+f.Length]
		isText := f.Type == types.TextType
		if v.IsNull() {
			fillBytes(slot, nullFillByte)
			if isText {
				textIdx++
			}
			continue
		}

		switch f.Type {
		case types.IntType, types.DateType:
			binary.LittleEndian.PutUint32(slot, uint32(v.GetInt()))
		case types.FloatType:
			binary.LittleEndian.PutUint32(slot, math.Float32bits(v.GetFloat()))
		case types.BoolType:
			if v.GetBool() {
				slot[0] = 1
			} else {
				slot[0] = 0
			}
		case types.CharType:
			encodeFixedString(slot, v.GetString())
		case types.TextType:
			if texts == nil {
				texts = make(map[int]string)
			}
			texts[textIdx] = v.GetString()
			textIdx++
		case types.VectorType:
			encodeVector(slot, v.RawVector())
		default:
			return nil, nil, rc.Errorf(rc.Unimplemented, "cannot encode field %s of type %s", f.Name, f.Type)
		}
	}
	return data, texts, nil
}

// DecodeRow is EncodeRow's inverse: raw is the record's fixed-width
// bytes (as returned by table.Table.GetRecord/Scanner), and texts is
// the side-channel map the same call returns, populated only for TEXT
// fields recordfile decided to store as an overflow chain.
func DecodeRow(fields []*catalog.FieldMeta, raw []byte, texts map[int]string) ([]types.Value, error) {
	out := make([]types.Value, len(fields))
	textIdx := 0

	for i, f := range fields {
		slot := raw[f.Offset : f.Offset+f.Length]
		isText := f.Type == types.TextType
		if allBytes(slot, nullFillByte) {
			out[i] = types.NewNull(f.Type)
			if isText {
				textIdx++
			}
			continue
		}

		switch f.Type {
		case types.IntType:
			out[i] = types.NewInt(int32(binary.LittleEndian.Uint32(slot)))
		case types.DateType:
			out[i] = types.NewDate(int32(binary.LittleEndian.Uint32(slot)))
		case types.FloatType:
			out[i] = types.NewFloat(math.Float32frombits(binary.LittleEndian.Uint32(slot)))
		case types.BoolType:
			out[i] = types.NewBool(slot[0] != 0)
		case types.CharType:
			out[i] = types.NewChars(decodeFixedString(slot), f.Length)
		case types.TextType:
			if s, ok := texts[textIdx]; ok {
				out[i] = types.NewText(s)
			} else {
				out[i] = types.NewText(decodeFixedString(slot))
			}
			textIdx++
		case types.VectorType:
			out[i] = types.NewVector(decodeVector(slot))
		default:
			return nil, rc.Errorf(rc.Unimplemented, "cannot decode field %s of type %s", f.Name, f.Type)
		}
	}
	return out, nil
}

func fillBytes(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func allBytes(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

func encodeFixedString(slot []byte, s string) {
	fillBytes(slot, 0)
	n := copy(slot, s)
	_ = n
}

// decodeFixedString stops at the first zero byte, mirroring
// recordfile's own trailing-zero convention for fixed string slots.
func decodeFixedString(slot []byte) string {
	for i, b := range slot {
		if b == 0 {
			return string(slot[:i])
		}
	}
	return string(slot)
}

func encodeVector(slot []byte, vs []float32) {
	for i, v := range vs {
		off := i * 4
		if off+4 > len(slot) {
			break
		}
		binary.LittleEndian.PutUint32(slot[off:off+4], math.Float32bits(v))
	}
}

func decodeVector(slot []byte) []float32 {
	n := len(slot) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(slot[i*4 : i*4+4]))
	}
	return out
}

// FieldWidth returns the fixed on-disk byte width a column of type t
// occupies, given its declared length (CHAR(n)/VECTOR(n)'s n, ignored
// for fixed-width scalar types, and the TEXT slot width default when
// length is 0).
func FieldWidth(t types.AttrType, declaredLength int) int {
	if w := scalarWidth(t); w > 0 {
		return w
	}
	switch t {
	case types.CharType:
		if declaredLength <= 0 {
			return 255
		}
		return declaredLength
	case types.TextType:
		if declaredLength <= 0 {
			return types.InlineTextCapacity
		}
		return declaredLength
	case types.VectorType:
		return declaredLength * 4
	default:
		return declaredLength
	}
}
