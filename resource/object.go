package resource

import (
	"github.com/kbukum/datapipe/storage"
)

// Object is a handle to a file in a named store.
type Object struct {
	store   string
	storage storage.Storage
	path    string
	schema  *Schema
}

// NewObject creates a handle for path in the named store. A non-nil schema
// describes the records the file holds.
func NewObject(store string, st storage.Storage, path string, schema *Schema) *Object {
	return &Object{store: store, storage: st, path: path, schema: schema}
}

// Key implements Resource.
func (o *Object) Key() string { return "object:" + o.store + "/" + o.path }

// Name implements Resource.
func (o *Object) Name() string { return o.path }

// Schema implements Resource.
func (o *Object) Schema() *Schema { return o.schema }

// Relocate implements Resource. The relocated object keeps the schema.
func (o *Object) Relocate(name string) Resource {
	return &Object{store: o.store, storage: o.storage, path: name, schema: o.schema}
}

// Store returns the store name.
func (o *Object) Store() string { return o.store }

// Storage returns the backing store.
func (o *Object) Storage() storage.Storage { return o.storage }

// Path returns the object path within its store.
func (o *Object) Path() string { return o.path }

func (o *Object) String() string { return o.Key() }
