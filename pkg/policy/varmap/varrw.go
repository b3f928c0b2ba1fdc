package varmap

import (
	"fmt"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
)

// VarRW is the runtime bridge between the VM and a concrete route object.
// A VarRW instance is bound to exactly one route and used exactly once:
// one route-processing event creates it, runs one policy chain, and
// discards it.
type VarRW interface {
	// Read returns the current value for id. If the underlying route lacks
	// the attribute, it returns value.Null().
	Read(id Id) (value.Value, error)
	// Write buffers a write; it has no visible effect until Sync.
	Write(id Id, v value.Value) error
	// Sync commits buffered writes to the underlying route, producing at
	// most one effective write per id even if the policy wrote repeatedly.
	Sync() error
}

// SemanticVarRW is used at semantic-check time. It returns type-correct
// sentinel values for type propagation only — never actual route data —
// and flags any read of a non-declared variable or write to a read-only
// variable.
type SemanticVarRW struct {
	vm       *VarMap
	protocol string
	writes   map[Id]bool
}

func NewSemanticVarRW(vm *VarMap, protocol string) *SemanticVarRW {
	return &SemanticVarRW{vm: vm, protocol: protocol, writes: make(map[Id]bool)}
}

func (s *SemanticVarRW) Read(id Id) (value.Value, error) {
	typ, ok := s.vm.TypeOf(id)
	if !ok {
		return value.Value{}, &UnknownVariableError{Protocol: s.protocol}
	}
	return sentinel(typ), nil
}

func (s *SemanticVarRW) Write(id Id, v value.Value) error {
	access, ok := s.vm.AccessOf(id)
	if !ok {
		return &UnknownVariableError{Protocol: s.protocol}
	}
	if access != ReadWrite {
		return fmt.Errorf("write to read-only variable id %d", id)
	}
	typ, _ := s.vm.TypeOf(id)
	if v.Kind() != typ {
		return fmt.Errorf("type mismatch writing variable id %d: want %s, got %s", id, typ, v.Kind())
	}
	s.writes[id] = true
	return nil
}

func (s *SemanticVarRW) Sync() error { return nil }

// sentinel returns a type-correct placeholder value for type propagation.
func sentinel(k value.Kind) value.Value {
	switch k {
	case value.KindU32:
		return value.U32(0)
	case value.KindBool:
		return value.Bool(false)
	case value.KindStr:
		return value.Str("")
	case value.KindASPath:
		return value.ASPath(nil)
	case value.KindCommunitySet:
		return value.CommunitySet(nil)
	case value.KindSet32:
		return value.Set32(nil)
	default:
		return value.Null()
	}
}

// MapVarRW is a minimal VarRW over a single (id -> Value) map, grounded on
// XORP's single_varrw: useful for unit-testing policies and the CLI's "vm
// eval" command, which has no underlying protocol route object.
type MapVarRW struct {
	values  map[Id]value.Value
	pending map[Id]value.Value
}

func NewMapVarRW(initial map[Id]value.Value) *MapVarRW {
	m := make(map[Id]value.Value, len(initial))
	for k, v := range initial {
		m[k] = v
	}
	return &MapVarRW{values: m, pending: make(map[Id]value.Value)}
}

func (m *MapVarRW) Read(id Id) (value.Value, error) {
	if v, ok := m.pending[id]; ok {
		return v, nil
	}
	if v, ok := m.values[id]; ok {
		return v, nil
	}
	return value.Null(), nil
}

func (m *MapVarRW) Write(id Id, v value.Value) error {
	m.pending[id] = v
	return nil
}

func (m *MapVarRW) Sync() error {
	for id, v := range m.pending {
		m.values[id] = v
	}
	m.pending = make(map[Id]value.Value)
	return nil
}

// Snapshot returns the committed (post-Sync) values, for test assertions.
func (m *MapVarRW) Snapshot() map[Id]value.Value {
	out := make(map[Id]value.Value, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
