package spawn

import "sync"

// Group is a named holder of active instances, the running rendition of the
// helper containers a scene hierarchy would parent spawned objects under.
// A nil *Group is valid and tracks nothing, so GroupNone can flow through
// the same code paths as real groups.
type Group struct {
	name    string
	mu      sync.Mutex
	members map[Instance]struct{}
}

// Process-wide helper groups covering the two standard spawn categories.
// Managers route spawns to these by configured group name.
var (
	// GroupActors holds spawned gameplay actors (projectiles, enemies)
	GroupActors = NewGroup("actors")
	// GroupEffects holds spawned transient effects (particles, decals)
	GroupEffects = NewGroup("effects")
)

// GroupNone opts a spawn out of group tracking entirely.
var GroupNone *Group

// NewGroup creates an empty group with the given name.
func NewGroup(name string) *Group {
	return &Group{
		name:    name,
		members: make(map[Instance]struct{}),
	}
}

// Name returns the group's name. Nil groups report "none".
func (g *Group) Name() string {
	if g == nil {
		return "none"
	}
	return g.name
}

// Len returns the number of active instances currently in the group
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Contains reports whether inst is currently tracked by the group
func (g *Group) Contains(inst Instance) bool {
	if g == nil || inst == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[inst]
	return ok
}

// Members returns a snapshot of the group's instances. Order is not
// specified.
func (g *Group) Members() []Instance {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	members := make([]Instance, 0, len(g.members))
	for inst := range g.members {
		members = append(members, inst)
	}
	return members
}

// add tracks inst, reporting whether it was newly added.
func (g *Group) add(inst Instance) bool {
	if g == nil || inst == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[inst]; ok {
		return false
	}
	g.members[inst] = struct{}{}
	return true
}

// remove untracks inst, reporting whether it was a member.
func (g *Group) remove(inst Instance) bool {
	if g == nil || inst == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[inst]; !ok {
		return false
	}
	delete(g.members, inst)
	return true
}
