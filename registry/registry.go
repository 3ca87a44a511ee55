// Package registry maps task names to user-supplied activity and entity
// implementations.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dogmatiq/durabletask/activity"
	"github.com/dogmatiq/durabletask/entity"
)

// Registry is a set of named activities and entities.
//
// Names are case-insensitive. It is safe for concurrent use, although all
// tasks are typically registered before the worker is started.
type Registry struct {
	m          sync.RWMutex
	activities map[string]activity.Activity
	entities   map[string]entity.Entity
}

var (
	_ activity.Registry = (*Registry)(nil)
	_ entity.Registry   = (*Registry)(nil)
)

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// AddActivity registers an activity under the given name.
//
// It returns an error if the name is empty or another activity is already
// registered under the same name.
func (r *Registry) AddActivity(name string, a activity.Activity) error {
	if a == nil {
		return fmt.Errorf("activity '%s' must not be nil", name)
	}

	r.m.Lock()
	defer r.m.Unlock()

	k, err := key("activity", name)
	if err != nil {
		return err
	}

	if _, ok := r.activities[k]; ok {
		return fmt.Errorf("an activity named '%s' is already registered", name)
	}

	if r.activities == nil {
		r.activities = map[string]activity.Activity{}
	}
	r.activities[k] = a

	return nil
}

// AddEntity registers an entity under the given name.
//
// It returns an error if the name is empty, contains the '@' character or
// another entity is already registered under the same name.
func (r *Registry) AddEntity(name string, e entity.Entity) error {
	if e == nil {
		return fmt.Errorf("entity '%s' must not be nil", name)
	}

	if strings.Contains(name, "@") {
		return fmt.Errorf("entity name '%s' must not contain '@'", name)
	}

	r.m.Lock()
	defer r.m.Unlock()

	k, err := key("entity", name)
	if err != nil {
		return err
	}

	if _, ok := r.entities[k]; ok {
		return fmt.Errorf("an entity named '%s' is already registered", name)
	}

	if r.entities == nil {
		r.entities = map[string]entity.Entity{}
	}
	r.entities[k] = e

	return nil
}

// Activity returns the activity registered under the given name.
func (r *Registry) Activity(name string) (activity.Activity, bool) {
	r.m.RLock()
	defer r.m.RUnlock()

	a, ok := r.activities[strings.ToLower(name)]
	return a, ok
}

// Entity returns the entity registered under the given name.
func (r *Registry) Entity(name string) (entity.Entity, bool) {
	r.m.RLock()
	defer r.m.RUnlock()

	e, ok := r.entities[strings.ToLower(name)]
	return e, ok
}

// ActivityNames returns the normalized names of all registered activities,
// in lexical order.
func (r *Registry) ActivityNames() []string {
	r.m.RLock()
	defer r.m.RUnlock()

	return sortedKeys(r.activities)
}

// EntityNames returns the normalized names of all registered entities, in
// lexical order.
func (r *Registry) EntityNames() []string {
	r.m.RLock()
	defer r.m.RUnlock()

	return sortedKeys(r.entities)
}

func key(kind, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%s name must not be empty", kind)
	}

	return strings.ToLower(name), nil
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
