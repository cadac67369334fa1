package db

import "strings"

// Where accumulates parameterized predicates joined with AND.
type Where struct {
	conds []string
	args  []any
}

// And adds a predicate with its arguments.
func (w *Where) And(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// Contains adds a case-insensitive substring match against any of cols.
// Both sides are folded with Unicode rules via ulower. Empty terms are ignored.
func (w *Where) Contains(term string, cols ...string) {
	if term == "" || len(cols) == 0 {
		return
	}
	pattern := LikePattern(term)
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		parts[i] = "ulower(COALESCE(" + col + `, '')) LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	cond := strings.Join(parts, " OR ")
	if len(cols) > 1 {
		cond = "(" + cond + ")"
	}
	w.And(cond, args...)
}

// SQL renders the clause with a leading " WHERE", or "" if empty.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (w *Where) Args() []any {
	return w.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern lowercases term, escapes LIKE wildcards and wraps it in %.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
