//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package loader keeps cassette documents in memory, grouped by namespace,
// and joins every cassette with the component it names.
package loader

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/log"
)

// Well-known namespaces.
const (
	DefaultNamespace  = "default"
	ExamplesNamespace = "examples"
)

// ErrInvalidUID is returned for documents whose uid is not a UUID.
var ErrInvalidUID = errors.New("invalid uid")

type scope struct {
	namespace string
	name      string
}

type storedCassette struct {
	id          uuid.UUID
	name        string
	component   string
	group       *string
	description *string
	priority    *uint32
}

type storedComponent struct {
	name string
	spec cassette.ComponentSpec
}

// DB is a concurrency-safe in-memory cassette store.
type DB struct {
	mu               sync.RWMutex
	defaultNamespace string
	cassettes        map[string]map[uuid.UUID]storedCassette
	components       map[uuid.UUID]storedComponent
	scopes           map[scope]uuid.UUID
}

// Option configures a DB.
type Option func(*DB)

// WithDefaultNamespace sets the namespace of documents that carry none.
func WithDefaultNamespace(ns string) Option {
	return func(db *DB) {
		if ns != "" {
			db.defaultNamespace = ns
		}
	}
}

// New creates an empty DB.
func New(opts ...Option) *DB {
	db := &DB{
		defaultNamespace: DefaultNamespace,
		cassettes:        make(map[string]map[uuid.UUID]storedCassette),
		components:       make(map[uuid.UUID]storedComponent),
		scopes:           make(map[scope]uuid.UUID),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// DefaultNamespace returns the namespace used for documents without one.
func (db *DB) DefaultNamespace() string {
	return db.defaultNamespace
}

func (db *DB) identify(meta cassette.ObjectMeta) (uuid.UUID, string, error) {
	id, err := uuid.Parse(meta.UID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w %q for %s: %v", ErrInvalidUID, meta.UID, meta.Name, err)
	}
	ns := meta.Namespace
	if ns == "" {
		ns = db.defaultNamespace
	}
	return id, ns, nil
}

// Insert stores a document of either kind, replacing any document with the
// same uid.
func (db *DB) Insert(doc cassette.Document) error {
	switch doc.Kind {
	case cassette.KindCassette:
		if doc.Cassette == nil {
			return fmt.Errorf("cassette %q: missing spec", doc.Metadata.Name)
		}
		return db.InsertCassette(doc.Metadata, *doc.Cassette)
	case cassette.KindComponent:
		if doc.Component == nil {
			return fmt.Errorf("component %q: missing spec", doc.Metadata.Name)
		}
		return db.InsertComponent(doc.Metadata, *doc.Component)
	default:
		return fmt.Errorf("unknown document kind %q", doc.Kind)
	}
}

// InsertCassette stores a cassette resource.
func (db *DB) InsertCassette(meta cassette.ObjectMeta, spec cassette.CassetteResourceSpec) error {
	id, ns, err := db.identify(meta)
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.cassettes[ns] == nil {
		db.cassettes[ns] = make(map[uuid.UUID]storedCassette)
	}
	db.cassettes[ns][id] = storedCassette{
		id:          id,
		name:        meta.Name,
		component:   spec.Component,
		group:       spec.Group,
		description: spec.Description,
		priority:    spec.Priority,
	}
	log.Debugf("loader: stored cassette %s/%s (%s)", ns, meta.Name, id)
	return nil
}

// InsertComponent stores a component resource after validating it.
func (db *DB) InsertComponent(meta cassette.ObjectMeta, spec cassette.ComponentSpec) error {
	id, ns, err := db.identify(meta)
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("component %s/%s: %w", ns, meta.Name, err)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.components[id] = storedComponent{name: meta.Name, spec: spec}
	db.scopes[scope{namespace: ns, name: meta.Name}] = id
	log.Debugf("loader: stored component %s/%s (%s)", ns, meta.Name, id)
	return nil
}

// Remove deletes a document of either kind. Removing an absent document is
// not an error.
func (db *DB) Remove(doc cassette.Document) error {
	id, ns, err := db.identify(doc.Metadata)
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	switch doc.Kind {
	case cassette.KindCassette:
		if cassettes, ok := db.cassettes[ns]; ok {
			delete(cassettes, id)
			if len(cassettes) == 0 {
				delete(db.cassettes, ns)
			}
		}
	case cassette.KindComponent:
		delete(db.components, id)
		key := scope{namespace: ns, name: doc.Metadata.Name}
		if db.scopes[key] == id {
			delete(db.scopes, key)
		}
	default:
		return fmt.Errorf("unknown document kind %q", doc.Kind)
	}
	return nil
}

// Get returns the cassette with id in ns, joined with its component. It
// reports false when the cassette or its component is missing.
func (db *DB) Get(ns string, id uuid.UUID) (*cassette.Cassette, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	stored, ok := db.cassettes[ns][id]
	if !ok {
		return nil, false
	}
	componentID, ok := db.scopes[scope{namespace: ns, name: stored.component}]
	if !ok {
		return nil, false
	}
	component, ok := db.components[componentID]
	if !ok {
		return nil, false
	}
	return &cassette.Cassette{
		ID:          stored.id,
		Name:        stored.name,
		Group:       stored.group,
		Description: stored.description,
		Priority:    stored.priority,
		Component:   component.spec,
	}, true
}

// List returns the cassettes of ns whose component exists, sorted by id.
func (db *DB) List(ns string) []cassette.Ref {
	db.mu.RLock()
	defer db.mu.RUnlock()
	refs := make([]cassette.Ref, 0, len(db.cassettes[ns]))
	for _, stored := range db.cassettes[ns] {
		componentID, ok := db.scopes[scope{namespace: ns, name: stored.component}]
		if !ok {
			continue
		}
		refs = append(refs, cassette.Ref{
			ID:          stored.id,
			Name:        stored.name,
			Group:       stored.group,
			Description: stored.description,
			Priority:    stored.priority,
			Component:   componentID,
		})
	}
	cassette.SortRefs(refs)
	return refs
}

// Namespaces returns every namespace holding a cassette, sorted.
func (db *DB) Namespaces() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.cassettes))
	for ns := range db.cassettes {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Load stores every document, deriving missing uids from their names. It
// keeps going past bad documents and returns their errors joined.
func (db *DB) Load(docs []cassette.Document) error {
	var errs []error
	for _, doc := range docs {
		EnsureUID(&doc.Metadata)
		if err := db.Insert(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
