package spawn

import (
	"strings"
	"sync/atomic"

	"github.com/ajitpratap0/respawn/pkg/pool"
)

// CloneSuffix is the marker appended to the names of instantiated clones.
// Release strips it to recover the lookup key.
const CloneSuffix = " (clone)"

// SpawnKey derives the lookup key from a prototype or instance name by
// stripping the clone marker when present. Names without the marker are
// returned unchanged, so keys survive a round trip through CloneName.
func SpawnKey(name string) string {
	return strings.TrimSuffix(name, CloneSuffix)
}

// CloneName returns the instance name for a clone spawned from key.
func CloneName(key string) string {
	return key + CloneSuffix
}

// Prototype is the blueprint a spawn request names. The display name is the
// basis of the lookup key; Instantiate produces a fresh clone when the pool
// has nothing to reuse.
//
// Implementations should name clones with CloneName(DisplayName()) so the
// release path can recover the key. Basic and Entity take care of this; a
// clone named without the marker still releases correctly because key
// derivation strips the marker only when present.
type Prototype interface {
	// DisplayName returns the prototype's display name
	DisplayName() string
	// Instantiate produces a fresh clone of the prototype
	Instantiate() Instance
}

// Instance is a spawnable, recyclable entity. Instances move between a
// group (while active) and their pool record's inactive FIFO (while
// pooled); the manager toggles the active flag at those transitions.
type Instance interface {
	// Name returns the instance display name, clone marker included
	Name() string
	// SetActive toggles the active state
	SetActive(active bool)
	// Active reports whether the instance is currently active
	Active() bool
}

// Entity is a ready-made Instance implementation carrying a generated ID, a
// name, an active flag, and optional lifecycle hooks. Embed it so gameplay
// types only add their own state:
//
//	type Projectile struct {
//	    *spawn.Entity
//	    Velocity float64
//	}
type Entity struct {
	// Activator runs when the entity transitions from inactive to active
	Activator func()
	// Deactivator runs when the entity transitions from active to inactive
	Deactivator func()

	id     string
	name   string
	active int32
}

// NewEntity creates an inactive Entity with a generated instance ID.
func NewEntity(name string) *Entity {
	return &Entity{
		id:   pool.GenerateID("inst"),
		name: name,
	}
}

// ID returns the entity's generated instance ID
func (e *Entity) ID() string {
	return e.id
}

// Name returns the entity's display name
func (e *Entity) Name() string {
	return e.name
}

// Active reports whether the entity is currently active
func (e *Entity) Active() bool {
	return atomic.LoadInt32(&e.active) == 1
}

// SetActive toggles the active state. The Activator and Deactivator hooks
// fire on transitions only; setting the current state again is a no-op.
func (e *Entity) SetActive(active bool) {
	var next int32
	if active {
		next = 1
	}
	if atomic.SwapInt32(&e.active, next) == next {
		return
	}
	if active {
		if e.Activator != nil {
			e.Activator()
		}
	} else {
		if e.Deactivator != nil {
			e.Deactivator()
		}
	}
}

// Basic is a minimal Prototype built from a display name and an optional
// constructor. With a nil constructor, Instantiate produces a bare Entity.
type Basic struct {
	name      string
	construct func() Instance
}

// NewBasic creates a Basic prototype. The constructor may be nil; when
// provided it is responsible for the clone's entire initial state and
// should name the clone with CloneName(name).
func NewBasic(name string, construct func() Instance) *Basic {
	return &Basic{name: name, construct: construct}
}

// DisplayName returns the prototype's display name
func (b *Basic) DisplayName() string {
	return b.name
}

// Instantiate produces a fresh clone carrying the clone marker
func (b *Basic) Instantiate() Instance {
	if b.construct != nil {
		return b.construct()
	}
	return NewEntity(CloneName(b.name))
}
