package internal

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetDeduplicates(t *testing.T) {
	s := NewSet[int32]()
	s.Add(1)
	s.Add(2)
	s.Add(1)

	assert.Equal(t, 2, s.Size())
	assert.True(t, s.Contains(1))
	assert.False(t, s.Contains(3))

	items := s.ToSlice()
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	assert.Equal(t, []int32{1, 2}, items)
}

func TestMapKeys(t *testing.T) {
	keys := MapKeys(map[string]int{"a": 1, "b": 2})
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)

	assert.Empty(t, MapKeys[string, int](nil))
}
