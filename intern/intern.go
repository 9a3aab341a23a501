// Package intern implements string interning on top of a weak set, the
// worked example the original library ships alongside its tests: a
// Symbol is only as expensive to compare as a pointer, and interned
// strings are reclaimed once nothing holds a Symbol naming them
// anymore.
package intern

import "github.com/tov/weakhash"

// Symbol is an interned string. Two Symbols compare equal (via Equal)
// if and only if they were interned from equal strings by the same
// Table, which the underlying weak set guarantees by construction.
type Symbol struct {
	name *string
}

// Uninterned wraps name in a Symbol without interning it: the result
// compares unequal to any Symbol interned by any Table, including one
// interned from an equal string, matching the original's
// Symbol::uninterned escape hatch for callers that want a Symbol
// without touching a table.
func Uninterned(name string) Symbol {
	n := name
	return Symbol{name: &n}
}

// String returns the interned text.
func (s Symbol) String() string { return *s.name }

// Equal reports whether s and o were interned from the same table entry
// - pointer identity, not string content, which is the entire point of
// interning.
func (s Symbol) Equal(o Symbol) bool { return s.name == o.name }

// Table interns strings against its own weak set. Once nothing but the
// table itself references an interned string's backing storage - no
// live Symbol names it - the entry disappears from the table on its
// own, subject to Table's usual lazy-expiry and overcounting rules.
type Table struct {
	set *weakhash.Set[string]
}

// NewTable constructs an empty interning table.
func NewTable() *Table {
	return &Table{set: weakhash.NewSet[string](0)}
}

// Intern returns a Symbol for name, reusing an existing entry if the
// table already holds an uncollected one for an equal string.
func (t *Table) Intern(name string) Symbol {
	if p, ok := t.set.Find(name); ok {
		return Symbol{name: p}
	}
	n := name
	t.set.Insert(&n)
	return Symbol{name: &n}
}

// Size returns the table's overcounted entry count. See
// weakhash.Table.Size.
func (t *Table) Size() int { return t.set.Size() }

var defaultTable = NewTable()

// Intern interns name against a package-level default Table, following
// the original's free intern() function backed by a function-local
// static table.
func Intern(name string) Symbol { return defaultTable.Intern(name) }
