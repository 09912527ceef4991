package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIn(t *testing.T) {
	assert.True(t, In([]string{"a", "b"}, "b"))
	assert.False(t, In([]string{"a", "b"}, "c"))
	assert.False(t, In(nil, ""))
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "z"}, UniqueSorted([]string{"z", "a", "", "z", "b", "a"}))
	assert.Equal(t, []string{}, UniqueSorted(nil))
}
