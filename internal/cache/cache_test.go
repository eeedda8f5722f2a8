package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprints_GetSet(t *testing.T) {
	c := NewFingerprints()

	_, found := c.Get("https://example.com/1")
	assert.False(t, found)
	assert.False(t, c.Unchanged("https://example.com/1", "abc"))

	c.Set("https://example.com/1", "abc")

	v, found := c.Get("https://example.com/1")
	assert.True(t, found)
	assert.Equal(t, "abc", v)
	assert.True(t, c.Unchanged("https://example.com/1", "abc"))
	assert.False(t, c.Unchanged("https://example.com/1", "def"))
	assert.Equal(t, 1, c.Len())
}

func TestFingerprints_Delete(t *testing.T) {
	c := NewFingerprints()
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	c.Delete("missing")

	_, found := c.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, c.Len())
}

func TestFingerprints_Concurrent(t *testing.T) {
	c := NewFingerprints()
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("key%d", id%10), fmt.Sprintf("v%d", id))
		}(i)
		go func(id int) {
			defer wg.Done()
			c.Unchanged(fmt.Sprintf("key%d", id%10), "v0")
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 10, c.Len())
}
