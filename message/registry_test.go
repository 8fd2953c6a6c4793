package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type num struct{ V int }

type numbers struct{ Vs []int }

func (n numbers) Clone() numbers {
	return numbers{Vs: append([]int(nil), n.Vs...)}
}

type text struct{ S string }

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()

	a := RegisterIn[num](r)
	b := RegisterIn[text](r)

	assert.Equal(t, LocalTypeID(1), a)
	assert.Equal(t, LocalTypeID(2), b)

	id, ok := TypeIDOfIn[text](r)
	require.True(t, ok)
	assert.Equal(t, b, id)

	_, ok = TypeIDOfIn[numbers](r)
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "github.com/najoast/sngo/v2/message.num", list[0].Name)
	assert.Equal(t, a, list[0].TypeID)
}

func TestRegisterTwicePanics(t *testing.T) {
	r := NewRegistry()
	RegisterIn[num](r)

	assert.PanicsWithValue(t, "message: github.com/najoast/sngo/v2/message.num registered twice", func() {
		RegisterIn[num](r)
	})
}

func TestRegisterAfterLookupPanics(t *testing.T) {
	r := NewRegistry()
	id := RegisterIn[num](r)

	require.NotNil(t, r.Lookup(id))

	assert.Panics(t, func() {
		RegisterIn[text](r)
	})
}

func TestLookupUnknownPanics(t *testing.T) {
	r := NewRegistry()
	RegisterIn[num](r)

	assert.PanicsWithValue(t, "message: invalid LocalTypeID 99", func() {
		r.Lookup(99)
	})
}

func TestClone(t *testing.T) {
	r := NewRegistry()
	plain := RegisterIn[num](r)
	deep := RegisterIn[numbers](r)
	custom := RegisterIn[text](r, WithClone(func(v text) text {
		return text{S: v.S + "'"}
	}), WithName[text]("text"))

	got := r.Lookup(plain).Clone(NewAny(num{V: 5}))
	assert.Equal(t, num{V: 5}, got.Value())

	orig := numbers{Vs: []int{1, 2}}
	cloned, ok := AnyAs[numbers](r.Lookup(deep).Clone(NewAny(orig)))
	require.True(t, ok)
	cloned.Vs[0] = 100
	assert.Equal(t, 1, orig.Vs[0])

	vt := r.Lookup(custom)
	assert.Equal(t, "text", vt.Name)
	assert.Equal(t, text{S: "x'"}, vt.Clone(NewAny(text{S: "x"})).Value())
}

func TestPointerTypeName(t *testing.T) {
	r := NewRegistry()
	id := RegisterIn[*num](r)

	assert.Equal(t, "*github.com/najoast/sngo/v2/message.num", r.Lookup(id).Name)
}

func TestAny(t *testing.T) {
	var empty Any
	assert.True(t, empty.IsEmpty())

	a := NewAny(num{V: 1})
	assert.False(t, a.IsEmpty())

	_, ok := AnyAs[text](a)
	assert.False(t, ok)
}
