package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetHas(t *testing.T) {
	s := Set{"orders.read", "orders.write"}

	assert.True(t, s.Has("orders.read"))
	assert.False(t, s.Has("users.delete"))
	assert.False(t, Set(nil).Has("anything"))
}

func TestSetWildcard(t *testing.T) {
	s := Set{Wildcard}

	assert.True(t, s.Has("orders.read"))
	assert.True(t, s.Has("users.delete"))
	assert.True(t, s.HasAll("a", "b", "c"))
}

func TestSetHasAny(t *testing.T) {
	s := Set{"orders.read"}

	assert.True(t, s.HasAny("users.delete", "orders.read"))
	assert.False(t, s.HasAny("users.delete", "users.create"))
	assert.False(t, s.HasAny())
}

func TestSetHasAll(t *testing.T) {
	s := Set{"orders.read", "orders.write"}

	assert.True(t, s.HasAll("orders.read", "orders.write"))
	assert.False(t, s.HasAll("orders.read", "users.delete"))
	assert.True(t, s.HasAll())
	assert.True(t, Set(nil).HasAll())
}
