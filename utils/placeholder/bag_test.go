package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// bagOf builds a bag from alternating key, value arguments.
func bagOf(kv ...string) *Bag {
	b := NewBag()
	for i := 0; i+1 < len(kv); i += 2 {
		b.Set(kv[i], kv[i+1])
	}
	return b
}

func TestBagOrder(t *testing.T) {
	b := NewBag()
	b.Set("title", "Hello")
	b.Set("slug", "hello")
	b.Set("author", "Ada")
	b.Set("title", "Hi")

	assert.Equal(t, []string{"title", "slug", "author"}, b.Keys())
	v, ok := b.Get("title")
	assert.True(t, ok)
	assert.Equal(t, "Hi", v)
}

func TestBagDelete(t *testing.T) {
	b := bagOf("a", "1", "b", "2", "c", "3")
	b.Delete("b")
	b.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, b.Keys())
	_, ok := b.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, b.Len())

	b.Set("b", "again")
	assert.Equal(t, []string{"a", "c", "b"}, b.Keys())
}

func TestNilBag(t *testing.T) {
	var b *Bag
	_, ok := b.Get("x")
	assert.False(t, ok)
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Keys())
	assert.Empty(t, b.Map())
}
