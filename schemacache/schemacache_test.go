package schemacache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/eventschema/fieldtype"
	"github.com/c360/eventschema/schema"
)

func TestCache_GetMiss(t *testing.T) {
	c := New()
	_, ok := c.Get("p", "c1")
	assert.False(t, ok)
}

func TestCache_PutGet(t *testing.T) {
	c := New()
	s := schema.New(schema.NewField("x", fieldtype.LONG))
	c.Put("p", "c1", s)

	got, ok := c.Get("p", "c1")
	assert.True(t, ok)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := schema.New(schema.NewField("x", fieldtype.LONG))
			c.Put("p", "c1", s)
			c.Get("p", "c1")
		}(i)
	}
	wg.Wait()
	_, ok := c.Get("p", "c1")
	assert.True(t, ok)
}
