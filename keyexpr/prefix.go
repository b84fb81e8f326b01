package keyexpr

// CommonPrefix computes the structural common prefix of a set of key
// expressions, column by column, stopping at the first mismatch or at the
// shortest expression. Used by §4.1 context build to compute the "common
// primary key" of every record type a query targets.
func CommonPrefix(keys []KeyExpression) KeyExpression {
	if len(keys) == 0 {
		return EmptyExpr
	}
	if len(keys) == 1 {
		return keys[0]
	}

	cols := keys[0].Columns()
	for _, k := range keys[1:] {
		cols = commonColumnPrefix(cols, k.Columns())
		if len(cols) == 0 {
			return EmptyExpr
		}
	}
	return Then(cols...)
}

func commonColumnPrefix(a, b []KeyExpression) []KeyExpression {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i].Equal(b[i]) {
		i++
	}
	return a[:i]
}
