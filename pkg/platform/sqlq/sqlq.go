// Package sqlq assembles parameterized SQL fragments whose shape depends on which
// optional parameters are present. Filters are AND-ed; assignments are comma joined;
// every value travels as a positional argument.
package sqlq

import (
	"strconv"
	"strings"
)

// Query accumulates placeholders and their arguments in order.
type Query struct {
	args   []any
	where  []string
	sets   []string
	suffix []string
}

// Arg appends v and returns its placeholder.
func (q *Query) Arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// Where adds a condition. Each "?" in cond is replaced by a placeholder bound to the
// next value of vals.
func (q *Query) Where(cond string, vals ...any) *Query {
	q.where = append(q.where, q.bind(cond, vals))
	return q
}

// WhereIf adds the condition only when present is true.
func (q *Query) WhereIf(present bool, cond string, vals ...any) *Query {
	if present {
		q.Where(cond, vals...)
	}
	return q
}

// Set adds a "col = $n" assignment.
func (q *Query) Set(col string, v any) *Query {
	q.sets = append(q.sets, col+" = "+q.Arg(v))
	return q
}

// SetIf adds the assignment only when present is true.
func (q *Query) SetIf(present bool, col string, v any) *Query {
	if present {
		q.Set(col, v)
	}
	return q
}

// Page appends ORDER BY / LIMIT / OFFSET. A non-positive size leaves the query unpaged.
func (q *Query) Page(orderBy string, page, size int) *Query {
	if size <= 0 {
		return q
	}
	clause := "ORDER BY " + orderBy + " LIMIT " + q.Arg(size)
	if offset := page * size; offset > 0 {
		clause += " OFFSET " + q.Arg(offset)
	}
	q.suffix = append(q.suffix, clause)
	return q
}

// HasSets reports whether any assignment was added.
func (q *Query) HasSets() bool { return len(q.sets) > 0 }

// WhereSQL renders " WHERE a AND b", or "" without conditions.
func (q *Query) WhereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

// SetSQL renders "a = $1, b = $2".
func (q *Query) SetSQL() string { return strings.Join(q.sets, ", ") }

// SuffixSQL renders trailing clauses such as paging.
func (q *Query) SuffixSQL() string {
	if len(q.suffix) == 0 {
		return ""
	}
	return " " + strings.Join(q.suffix, " ")
}

// Args returns the positional arguments in placeholder order.
func (q *Query) Args() []any { return q.args }

func (q *Query) bind(cond string, vals []any) string {
	var b strings.Builder
	i := 0
	for _, r := range cond {
		if r == '?' && i < len(vals) {
			b.WriteString(q.Arg(vals[i]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
