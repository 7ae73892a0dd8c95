package set

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetBasic(t *testing.T) {
	s := NewSet[uint64](1, 2)
	s.AddItem(2, 3)
	assert.Equal(t, 3, s.Size())
	assert.True(t, s.Contains(3))
	s.RemoveItem(3, 100)
	assert.False(t, s.Contains(3))
	assert.Equal(t, 2, s.Size())

	c := s.Clone()
	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 2, c.Size())
}

func TestSetIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint64
		want bool
	}{
		{"empty", nil, []uint64{1}, false},
		{"disjoint", []uint64{1, 2}, []uint64{3, 4, 5}, false},
		{"overlap", []uint64{1, 2, 3, 4, 5, 6}, []uint64{6}, true},
		{"same", []uint64{7}, []uint64{7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NewSet(tt.a...), NewSet(tt.b...)
			assert.Equal(t, tt.want, a.Intersects(b))
			assert.Equal(t, tt.want, b.Intersects(a))
			assert.Equal(t, tt.want, a.ContainsAny(tt.b...))
		})
	}
}

func TestSetAlgebra(t *testing.T) {
	a := NewSet(1, 2, 3)
	b := NewSet(2, 3, 4)
	sorted := func(s *Set[int]) []int {
		r := s.ToArray()
		sort.Ints(r)
		return r
	}
	assert.Equal(t, []int{2, 3}, sorted(a.Intersect(b)))
	assert.Equal(t, []int{1, 2, 3, 4}, sorted(a.Union(b)))
	assert.Equal(t, []int{1}, sorted(a.Difference(b)))
}
