// Package entity holds the world's entity table: a fixed-size array of
// allocation slots indexed directly (never by pointer), following the
// networked core's "indices, not pointers" rule so entity references
// survive serialization and replay untouched.
package entity

// Kind distinguishes the two entity shapes the core knows about. The set
// is closed, so a small enum is preferable to an interface hierarchy.
type Kind uint8

const (
	KindNone Kind = iota
	KindPlayer
	KindCube
)

// MaxEntities bounds the entity table; index 0 is reserved for the world
// itself and is never allocated.
const MaxEntities = 1024

const flagAllocated = 1 << 0

// Entity is the per-slot record. Position/orientation/velocity are owned by
// the physics simulator (looked up by PhysicsIndex); Entity itself only
// tracks identity and ownership.
type Entity struct {
	Kind         Kind
	Owner        int // client slot index owning this entity, or -1
	PhysicsIndex int // index into the Simulator's object table, or -1
}

// Manager allocates and frees entity indices using parallel arrays, exactly
// as original_source/entity.h does, instead of a map, to keep allocation
// and iteration allocation-free and index-stable.
type Manager struct {
	flags    [MaxEntities]uint8
	kinds    [MaxEntities]Kind
	sequence [MaxEntities]uint32
	entities [MaxEntities]Entity

	nextFree int // search cursor, starts past the reserved player range
}

// NewManager returns a Manager with all player slots pre-reserved
// ([1, 1+maxPlayers)) and the free cursor positioned just past them.
func NewManager(maxPlayers int) *Manager {
	m := &Manager{nextFree: 1 + maxPlayers}
	for i := 1; i < 1+maxPlayers && i < MaxEntities; i++ {
		m.flags[i] = flagAllocated
		m.kinds[i] = KindPlayer
		m.entities[i] = Entity{Kind: KindPlayer, Owner: i - 1, PhysicsIndex: -1}
	}
	return m
}

// Allocate finds the next free index of the given kind, or -1 if the table
// is full. Index 0 and the reserved player range are never handed out.
func (m *Manager) Allocate(kind Kind) int {
	for i := 0; i < MaxEntities; i++ {
		idx := m.nextFree
		m.nextFree++
		if m.nextFree >= MaxEntities {
			m.nextFree = 1 + m.playerRangeLen()
		}
		if m.flags[idx]&flagAllocated == 0 {
			m.flags[idx] = flagAllocated
			m.kinds[idx] = kind
			m.sequence[idx]++
			m.entities[idx] = Entity{Kind: kind, Owner: -1, PhysicsIndex: -1}
			return idx
		}
	}
	return -1
}

func (m *Manager) playerRangeLen() int {
	n := 0
	for i := 1; i < MaxEntities && m.kinds[i] == KindPlayer; i++ {
		n++
	}
	return n
}

// Free releases an entity index back to the pool. Freeing an already-free
// or out-of-range index is a no-op.
func (m *Manager) Free(index int) {
	if index <= 0 || index >= MaxEntities {
		return
	}
	if m.kinds[index] == KindPlayer {
		return // player slots are never freed through this path
	}
	m.flags[index] = 0
	m.entities[index] = Entity{}
}

// Kind returns the kind of the entity at index, or KindNone if unallocated.
func (m *Manager) Kind(index int) Kind {
	if index < 0 || index >= MaxEntities || m.flags[index]&flagAllocated == 0 {
		return KindNone
	}
	return m.kinds[index]
}

// Get returns a copy of the entity record at index and whether it's allocated.
func (m *Manager) Get(index int) (Entity, bool) {
	if index < 0 || index >= MaxEntities || m.flags[index]&flagAllocated == 0 {
		return Entity{}, false
	}
	return m.entities[index], true
}

// Set overwrites the entity record at index, provided it is allocated.
func (m *Manager) Set(index int, e Entity) bool {
	if index < 0 || index >= MaxEntities || m.flags[index]&flagAllocated == 0 {
		return false
	}
	m.entities[index] = e
	return true
}

// Allocated reports whether index currently holds a live entity.
func (m *Manager) Allocated(index int) bool {
	return index >= 0 && index < MaxEntities && m.flags[index]&flagAllocated != 0
}
