package logical

// Tables returns every base table name op's output rows can carry
// columns from, used by internal/planner/rewrite to decide how far a
// predicate conjunct can be pushed down.
func Tables(op Operator) []string {
	switch n := op.(type) {
	case *TableGetOp:
		return []string{n.Table.RefName()}
	case *JoinOp:
		return append(Tables(n.Left), Tables(n.Right)...)
	default:
		var out []string
		for _, c := range op.Children() {
			out = append(out, Tables(c)...)
		}
		return out
	}
}

// ContainsAll reports whether every element of want is present in set.
func ContainsAll(set []string, want []string) bool {
	idx := make(map[string]struct{}, len(set))
	for _, s := range set {
		idx[s] = struct{}{}
	}
	for _, w := range want {
		if _, ok := idx[w]; !ok {
			return false
		}
	}
	return true
}
