// Package message implements the process-wide message dispatch registry and
// the envelope that carries type-erased message values between actors.
//
// Every message type registers once, at package initialisation, through
// Register. The first lookup freezes the registry: from then on the index is
// read without synchronisation and further registrations panic.
package message

import (
	"fmt"
	"reflect"
	"sync"
)

// LocalTypeID tags a message type within one running process. It is not
// stable across processes or versions.
type LocalTypeID uint32

// VTable is the dispatch entry of one message type.
type VTable struct {
	TypeID LocalTypeID
	// Name is the fully qualified Go type name, e.g. "github.com/x/y.Ping".
	Name  string
	Type  reflect.Type
	Clone func(Any) Any
}

// Cloner is implemented by message types that need a deep copy.
type Cloner[T any] interface {
	Clone() T
}

// Registry is an append-only table of dispatch entries.
type Registry struct {
	mu     sync.Mutex
	list   []VTable
	types  map[reflect.Type]struct{}
	frozen bool

	once  sync.Once
	index *index
}

type index struct {
	byID   map[LocalTypeID]*VTable
	byType map[reflect.Type]*VTable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[reflect.Type]struct{})}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Option configures the registration of T.
type Option[T any] func(*registration[T])

type registration[T any] struct {
	clone func(T) T
	name  string
}

// WithClone sets the clone operation of T.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(r *registration[T]) {
		r.clone = clone
	}
}

// WithName overrides the registered name of T.
func WithName[T any](name string) Option[T] {
	return func(r *registration[T]) {
		r.name = name
	}
}

// Register adds T to the process-wide registry and returns its id.
// It is meant to be called from package-level variable initialisers.
func Register[T any](opts ...Option[T]) LocalTypeID {
	return RegisterIn[T](defaultRegistry, opts...)
}

// RegisterIn adds T to r and returns its id.
//
// The clone operation is taken from WithClone, else from T's Clone method,
// else a plain value copy is used.
func RegisterIn[T any](r *Registry, opts ...Option[T]) LocalTypeID {
	reg := registration[T]{name: typeName(reflect.TypeFor[T]())}
	for _, opt := range opts {
		opt(&reg)
	}

	clone := reg.clone
	if clone == nil {
		var zero T
		if _, ok := any(zero).(Cloner[T]); ok {
			clone = func(v T) T { return any(v).(Cloner[T]).Clone() }
		} else {
			clone = func(v T) T { return v }
		}
	}

	return r.add(VTable{
		Name: reg.name,
		Type: reflect.TypeFor[T](),
		Clone: func(a Any) Any {
			return Any{value: clone(a.value.(T))}
		},
	})
}

func (r *Registry) add(vt VTable) LocalTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		panic(fmt.Sprintf("message: %s registered after first lookup", vt.Name))
	}
	if _, exists := r.types[vt.Type]; exists {
		panic(fmt.Sprintf("message: %s registered twice", vt.Name))
	}

	vt.TypeID = LocalTypeID(len(r.list) + 1)
	r.list = append(r.list, vt)
	r.types[vt.Type] = struct{}{}

	return vt.TypeID
}

// idx builds the lookup index once and freezes the registry.
func (r *Registry) idx() *index {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.frozen = true
		ix := &index{
			byID:   make(map[LocalTypeID]*VTable, len(r.list)),
			byType: make(map[reflect.Type]*VTable, len(r.list)),
		}
		for i := range r.list {
			vt := &r.list[i]
			ix.byID[vt.TypeID] = vt
			ix.byType[vt.Type] = vt
		}
		r.index = ix
	})
	return r.index
}

// Lookup returns the dispatch entry of id. An unknown id means the binary
// and its registrations disagree, which is unrecoverable, so it panics.
func (r *Registry) Lookup(id LocalTypeID) *VTable {
	vt, ok := r.idx().byID[id]
	if !ok {
		panic(fmt.Sprintf("message: invalid LocalTypeID %d", id))
	}
	return vt
}

// LookupType returns the dispatch entry of a Go type.
func (r *Registry) LookupType(t reflect.Type) (*VTable, bool) {
	vt, ok := r.idx().byType[t]
	return vt, ok
}

// List returns all dispatch entries ordered by id.
func (r *Registry) List() []VTable {
	ix := r.idx()
	out := make([]VTable, 0, len(ix.byID))
	for id := LocalTypeID(1); int(id) <= len(ix.byID); id++ {
		out = append(out, *ix.byID[id])
	}
	return out
}

// Lookup returns the dispatch entry of id from the process-wide registry.
func Lookup(id LocalTypeID) *VTable {
	return defaultRegistry.Lookup(id)
}

// TypeIDOf returns the id T was registered with in the process-wide registry.
func TypeIDOf[T any]() (LocalTypeID, bool) {
	return TypeIDOfIn[T](defaultRegistry)
}

// TypeIDOfIn returns the id T was registered with in r.
func TypeIDOfIn[T any](r *Registry) (LocalTypeID, bool) {
	vt, ok := r.LookupType(reflect.TypeFor[T]())
	if !ok {
		return 0, false
	}
	return vt.TypeID, true
}

// MustTypeIDOf is like TypeIDOf but panics if T is not registered.
func MustTypeIDOf[T any]() LocalTypeID {
	id, ok := TypeIDOf[T]()
	if !ok {
		panic(fmt.Sprintf("message: %s is not registered", typeName(reflect.TypeFor[T]())))
	}
	return id
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
