package queue

import (
	"strings"
	"sync"
)

// Resolver maps channel names to backend addresses by joining them to a fixed
// base. Addresses are memoized per name for the lifetime of the Resolver.
type Resolver struct {
	base  string
	sep   string
	cache sync.Map // name -> address
}

// NewResolver creates a Resolver composing base + sep + name.
func NewResolver(base, sep string) *Resolver {
	return &Resolver{base: strings.TrimSuffix(base, sep), sep: sep}
}

// Resolve returns the address of the named channel. It never performs I/O.
func (r *Resolver) Resolve(name string) string {
	if v, ok := r.cache.Load(name); ok {
		return v.(string)
	}
	v, _ := r.cache.LoadOrStore(name, r.base+r.sep+name)
	return v.(string)
}

// Name strips an address down to its trailing channel name segment.
func (r *Resolver) Name(address string) string {
	address = strings.TrimSuffix(address, r.sep)
	if i := strings.LastIndex(address, r.sep); i >= 0 {
		return address[i+len(r.sep):]
	}
	return address
}
