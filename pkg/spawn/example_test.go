// Package spawn provides example usage of the keyed pooling layer.
package spawn_test

import (
	"fmt"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/spawn"
)

// Example demonstrates the spawn/release cycle: the first spawn
// instantiates a clone, releasing it pools the clone, and the next spawn
// reuses it.
func Example() {
	mgr := spawn.New(config.New("example"))
	proto := spawn.NewBasic("projectile", nil)

	first := mgr.Spawn(proto)
	fmt.Println(first.Name())

	mgr.Release(first)

	second := mgr.Spawn(proto)
	fmt.Println(first == second)
	mgr.Release(second)

	// Output:
	// projectile (clone)
	// true
}

// ExampleManager_Prewarm demonstrates bootstrapping a pool before the
// first wave of spawns hits it.
func ExampleManager_Prewarm() {
	mgr := spawn.New(config.New("example-prewarm"))
	proto := spawn.NewBasic("enemy_grunt", nil)

	added := mgr.Prewarm(proto, 3)
	fmt.Println("pooled:", added)

	inst := mgr.Spawn(proto)
	fmt.Println("reused:", inst != nil)
	mgr.Release(inst)

	s := mgr.Stats()
	fmt.Printf("created=%d reused=%d idle=%d\n", s.Created, s.Reused, s.Idle)

	// Output:
	// pooled: 3
	// reused: true
	// created=3 reused=1 idle=3
}

// ExampleInGroup demonstrates routing a spawn into the process-wide
// effects group instead of the default group.
func ExampleInGroup() {
	mgr := spawn.New(config.New("example-groups"))
	proto := spawn.NewBasic("muzzle_flash", nil)

	inst := mgr.Spawn(proto, spawn.InGroup(spawn.GroupEffects))
	fmt.Println(spawn.GroupEffects.Contains(inst))

	mgr.Release(inst)
	fmt.Println(spawn.GroupEffects.Contains(inst))

	// Output:
	// true
	// false
}

// ExampleWithInit demonstrates per-spawn initialization running after the
// instance is activated.
func ExampleWithInit() {
	mgr := spawn.New(config.New("example-init"))
	proto := spawn.NewBasic("enemy_grunt", nil)

	inst := mgr.Spawn(proto, spawn.WithInit(func(inst spawn.Instance) {
		fmt.Println("initializing", spawn.SpawnKey(inst.Name()))
	}))
	mgr.Release(inst)

	// Output:
	// initializing enemy_grunt
}

// ExampleNewEntity demonstrates the lifecycle hooks on the ready-made
// Entity base.
func ExampleNewEntity() {
	e := spawn.NewEntity(spawn.CloneName("projectile"))
	e.Activator = func() { fmt.Println("armed") }
	e.Deactivator = func() { fmt.Println("disarmed") }

	e.SetActive(true)
	e.SetActive(false)

	// Output:
	// armed
	// disarmed
}
