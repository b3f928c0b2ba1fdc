package value

import (
	"sort"
	"sync"

	"github.com/newtron-network/routepolicy/pkg/util"
)

// SetMap owns every named set in the configuration. Replacement of a set's
// contents does not change its identity: readers see the new contents on
// their next read. Deletion is rejected while any policy depends on the set.
type SetMap struct {
	mu       sync.RWMutex
	sets     map[string]Value
	depends  map[string]map[string]struct{} // set name -> dependent policy names
}

func NewSetMap() *SetMap {
	return &SetMap{
		sets:    make(map[string]Value),
		depends: make(map[string]map[string]struct{}),
	}
}

// Create adds an empty placeholder set if it does not already exist.
func (m *SetMap) Create(name string, kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[name]; ok {
		return util.ErrAlreadyExists
	}
	switch kind {
	case KindSet32:
		m.sets[name] = Set32(nil)
	case KindCommunitySet:
		m.sets[name] = CommunitySet(nil)
	default:
		m.sets[name] = Set32(nil)
	}
	return nil
}

// Update atomically replaces the named set's contents.
func (m *SetMap) Update(name string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[name]; !ok {
		return util.ErrNotFound
	}
	m.sets[name] = v
	return nil
}

// Add incrementally adds a single member to a Set32/CommunitySet.
func (m *SetMap) Add(name string, member uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sets[name]
	if !ok {
		return util.ErrNotFound
	}
	members := append(cur.Members(), member)
	if cur.Kind() == KindCommunitySet {
		m.sets[name] = CommunitySet(members)
	} else {
		m.sets[name] = Set32(members)
	}
	return nil
}

// Remove incrementally removes a single member.
func (m *SetMap) Remove(name string, member uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sets[name]
	if !ok {
		return util.ErrNotFound
	}
	members := cur.Members()
	out := members[:0]
	for _, x := range members {
		if x != member {
			out = append(out, x)
		}
	}
	if cur.Kind() == KindCommunitySet {
		m.sets[name] = CommunitySet(out)
	} else {
		m.sets[name] = Set32(out)
	}
	return nil
}

// Get returns the current value of a named set.
func (m *SetMap) Get(name string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sets[name]
	return v, ok
}

// Delete removes a set, failing with an InUseError if any policy depends on
// it.
func (m *SetMap) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[name]; !ok {
		return nil // delete_block on a missing target silently succeeds
	}
	if deps := m.depends[name]; len(deps) > 0 {
		names := make([]string, 0, len(deps))
		for d := range deps {
			names = append(names, d)
		}
		sort.Strings(names)
		return util.NewInUseError("set "+name, names...)
	}
	delete(m.sets, name)
	delete(m.depends, name)
	return nil
}

// SetDependents replaces the set of policy names depending on name,
// atomically: removed dependents lose their back-edge, new ones gain one.
func (m *SetMap) SetDependents(name string, policies map[string]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depends[name] = policies
}

// Dependents returns the policy names currently depending on name.
func (m *SetMap) Dependents(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deps := m.depends[name]
	out := make([]string, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Names returns every set name currently defined, sorted.
func (m *SetMap) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets))
	for n := range m.sets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
