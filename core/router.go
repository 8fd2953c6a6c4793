package core

import (
	"fmt"

	"github.com/najoast/sngo/v2/addr"
)

// router implements the Router interface on top of an address book.
type router struct {
	book *addr.Book[Actor]
}

// NewRouter creates a new Router allocating addresses on nodeNo.
func NewRouter(nodeNo uint16) Router {
	return newRouter(nodeNo)
}

func newRouter(nodeNo uint16) *router {
	return &router{book: addr.NewBook[Actor](nodeNo)}
}

// reserve allocates the address of an actor about to be created.
func (r *router) reserve() addr.Addr {
	return r.book.Reserve()
}

// Register binds actor to its address and name.
func (r *router) Register(actor Actor) error {
	if actor == nil {
		return fmt.Errorf("cannot register nil actor")
	}

	a := actor.Addr()
	if _, exists := r.book.Get(a); exists {
		return fmt.Errorf("actor %s already registered", a)
	}

	return r.book.Insert(a, actor.Name(), actor)
}

// Unregister removes an Actor from the routing table.
func (r *router) Unregister(a addr.Addr) error {
	if err := r.book.Remove(a); err != nil {
		return fmt.Errorf("%w: %s", ErrActorNotFound, a)
	}
	return nil
}

// Lookup finds an Actor by its address.
func (r *router) Lookup(a addr.Addr) (Actor, bool) {
	return r.book.Get(a)
}

// LookupName finds an Actor by its name.
func (r *router) LookupName(name string) (Actor, bool) {
	a, ok := r.book.Lookup(name)
	if !ok {
		return nil, false
	}
	return r.book.Get(a)
}

// List returns all registered addresses.
func (r *router) List() []addr.Addr {
	return r.book.List()
}

// Len returns the number of registered actors.
func (r *router) Len() int {
	return r.book.Len()
}
