package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrLayout(t *testing.T) {
	a := New(0xbeef, 42)

	assert.Equal(t, uint16(0xbeef), a.NodeNo())
	assert.Equal(t, uint64(42), a.Serial())
	assert.False(t, a.IsNull())
	assert.Equal(t, ":beef:0000002a", a.String())
	assert.Equal(t, "null", Null.String())
}

func TestBook(t *testing.T) {
	book := NewBook[string](7)

	a1 := book.Reserve()
	a2 := book.Reserve()
	require.NotEqual(t, a1, a2)
	require.Equal(t, uint16(7), a1.NodeNo())

	require.NoError(t, book.Insert(a1, "first", "one"))
	require.NoError(t, book.Insert(a2, "", "two"))

	v, ok := book.Get(a1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	found, ok := book.Lookup("first")
	require.True(t, ok)
	assert.Equal(t, a1, found)
	assert.Equal(t, "first", book.Name(a1))

	err := book.Insert(book.Reserve(), "first", "dup")
	require.ErrorIs(t, err, ErrNameTaken)

	assert.Equal(t, []Addr{a1, a2}, book.List())

	require.NoError(t, book.Remove(a1))
	_, ok = book.Get(a1)
	assert.False(t, ok)
	_, ok = book.Lookup("first")
	assert.False(t, ok)

	require.ErrorIs(t, book.Remove(a1), ErrNotFound)
	assert.Equal(t, 1, book.Len())
}
