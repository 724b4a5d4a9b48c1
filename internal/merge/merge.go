// Package merge joins datasets on the columns they share.
//
// Joins follow the pandas-style "natural" merge the extracts were designed
// for: the join key is every column name both sides declare, and two rows
// match when all of those values are equal (nil equals nil).
//
// Output order is deterministic: each left row in order, immediately
// followed by its matches in right order, then (outer join only) right rows
// that matched nothing, in order.
package merge

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"housingetl/pkg/records"
)

// Kind selects the join flavor.
type Kind int

const (
	// Outer keeps unmatched rows from both sides.
	Outer Kind = iota
	// Inner keeps only matched rows.
	Inner
)

// Merge outer-joins a with b, then the result with c.
func Merge(a, b, c records.Dataset) records.Dataset {
	ab := OuterJoin(a, b)
	abc := OuterJoin(ab, c)
	abc.Name = "merged"
	return abc
}

// OuterJoin joins left and right on their shared columns, keeping rows that
// have no partner on either side. Values for columns the partner would have
// supplied are nil.
func OuterJoin(left, right records.Dataset) records.Dataset {
	return Join(left, right, Outer)
}

// InnerJoin joins left and right on their shared columns and drops unmatched
// rows.
func InnerJoin(left, right records.Dataset) records.Dataset {
	return Join(left, right, Inner)
}

// SharedColumns returns the columns declared by both datasets, in left order.
func SharedColumns(left, right records.Dataset) []string {
	var out []string
	for _, c := range left.Columns {
		if right.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

// Join performs the join of the given kind. With no shared columns every
// left row matches every right row.
func Join(left, right records.Dataset, kind Kind) records.Dataset {
	on := SharedColumns(left, right)
	cols := unionColumns(left.Columns, right.Columns)

	buckets := make(map[uint64][]int, len(right.Rows))
	for j, r := range right.Rows {
		h := keyHash(r, on)
		buckets[h] = append(buckets[h], j)
	}

	matched := make([]bool, len(right.Rows))
	out := make([]records.Record, 0, len(left.Rows))
	for _, l := range left.Rows {
		hit := false
		for _, j := range buckets[keyHash(l, on)] {
			r := right.Rows[j]
			if !sameKey(l, r, on) {
				continue
			}
			hit = true
			matched[j] = true
			out = append(out, combine(cols, l, r))
		}
		if !hit && kind == Outer {
			out = append(out, combine(cols, l, nil))
		}
	}
	if kind == Outer {
		for j, r := range right.Rows {
			if !matched[j] {
				out = append(out, combine(cols, nil, r))
			}
		}
	}

	return records.Dataset{
		Name:    left.Name + "+" + right.Name,
		Columns: cols,
		Rows:    out,
	}
}

func unionColumns(left, right []string) []string {
	seen := make(map[string]struct{}, len(left)+len(right))
	out := make([]string, 0, len(left)+len(right))
	for _, set := range [][]string{left, right} {
		for _, c := range set {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// combine builds an output row over cols. Shared columns hold equal values
// on both sides, so the left value is taken when present.
func combine(cols []string, l, r records.Record) records.Record {
	out := make(records.Record, len(cols))
	for _, c := range cols {
		if v, ok := l[c]; ok && v != nil {
			out[c] = v
			continue
		}
		if v, ok := r[c]; ok {
			out[c] = v
			continue
		}
		out[c] = nil
	}
	return out
}

// keyHash hashes the join key of r. nil hashes differently from "" so the
// two never share a bucket.
func keyHash(r records.Record, on []string) uint64 {
	h := xxh3.New()
	for _, c := range on {
		switch v := r[c].(type) {
		case nil:
			_, _ = h.Write([]byte{0})
		case string:
			_, _ = h.Write([]byte{1})
			_, _ = h.WriteString(v)
		default:
			_, _ = h.Write([]byte{2})
			_, _ = h.WriteString(fmt.Sprint(v))
		}
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

func sameKey(l, r records.Record, on []string) bool {
	for _, c := range on {
		if l[c] != r[c] {
			return false
		}
	}
	return true
}
