package exec

import (
	"smfdb/internal/binder"
	"smfdb/internal/expr"
)

// evalBool evaluates e against tuple with SQL's tri-valued WHERE/HAVING
// semantics: NULL is treated the same as false, matching the filter
// rule every relational engine in the corpus uses.
func evalBool(e expr.Expression, tuple *expr.Tuple) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := e.GetValue(tuple)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, nil
	}
	return v.GetBool(), nil
}

// passesFilter reports whether tuple satisfies f, treating a nil
// filter (no WHERE clause) as always true.
func passesFilter(f *binder.FilterStmt, tuple *expr.Tuple) (bool, error) {
	if f == nil {
		return true, nil
	}
	return evalBool(f.Root, tuple)
}
