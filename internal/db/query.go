package db

import (
	"fmt"
	"strings"
)

// Where accumulates AND-ed conditions with positional arguments.
//
//	var w db.Where
//	w.Add("company ILIKE %s", "%"+company+"%")
//	sql := "SELECT ... FROM jobs" + w.SQL()
type Where struct {
	conds []string
	args  []any
}

// Add appends cond; every %s in cond is replaced by the next placeholder,
// bound in turn to args.
func (w *Where) Add(cond string, args ...any) {
	ph := make([]any, len(args))
	for i, a := range args {
		w.args = append(w.args, a)
		ph[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.conds = append(w.conds, fmt.Sprintf(cond, ph...))
}

// Arg binds v and returns its placeholder, for use outside WHERE (LIMIT, SET).
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// SQL renders " WHERE a AND b", or "" when empty.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (w *Where) Args() []any { return w.args }

// Like wraps s for a case-insensitive substring ILIKE match, escaping
// wildcard characters in s.
func Like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Set accumulates column assignments for a partial UPDATE, sharing the
// placeholder sequence of a Where.
type Set struct {
	w    *Where
	cols []string
}

// NewSet returns a Set binding into w.
func NewSet(w *Where) *Set { return &Set{w: w} }

// Add assigns v to col.
func (s *Set) Add(col string, v any) {
	s.cols = append(s.cols, col+" = "+s.w.Arg(v))
}

// Raw appends a literal assignment such as "updated_at = NOW()".
func (s *Set) Raw(expr string) { s.cols = append(s.cols, expr) }

// Len reports how many assignments were added.
func (s *Set) Len() int { return len(s.cols) }

// SQL renders "a = $1, b = $2".
func (s *Set) SQL() string { return strings.Join(s.cols, ", ") }
