package fakeapi

import "fintrack/internal/core"

// table is an insertion-ordered collection of records owned by users.
type table[T any] struct {
	name  string
	rows  []row[T]
	setID func(*T, core.ID)
}

type row[T any] struct {
	user string
	id   core.ID
	rec  T
}

func newTable[T any](name string, setID func(*T, core.ID)) *table[T] {
	return &table[T]{name: name, setID: setID}
}

func (t *table[T]) list(user string) []T {
	out := make([]T, 0)
	for _, r := range t.rows {
		if r.user == user {
			out = append(out, r.rec)
		}
	}
	return out
}

func (t *table[T]) insert(user string, id core.ID, rec T) T {
	t.setID(&rec, id)
	t.rows = append(t.rows, row[T]{user: user, id: id, rec: rec})
	return rec
}

func (t *table[T]) find(id core.ID) int {
	for i, r := range t.rows {
		if r.id == id {
			return i
		}
	}
	return -1
}

// replace overwrites the record with id, keeping its owner and position.
// A non-empty user must match the owner.
func (t *table[T]) replace(id core.ID, user string, rec T) (T, bool) {
	i := t.find(id)
	if i < 0 || (user != "" && t.rows[i].user != user) {
		var zero T
		return zero, false
	}
	t.setID(&rec, id)
	t.rows[i].rec = rec
	return rec, true
}

func (t *table[T]) remove(id core.ID) bool {
	i := t.find(id)
	if i < 0 {
		return false
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return true
}

func (t *table[T]) len() int { return len(t.rows) }
