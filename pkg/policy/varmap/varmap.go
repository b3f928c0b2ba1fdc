// Package varmap implements the VarMap catalog and the VarRW contract that
// bridges the policy VM to concrete route objects.
package varmap

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/util"
)

// Access describes whether a variable may be written by policy.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// Id is a stable-for-one-process-run numeric identifier for a variable.
// Generic variables (policy-tags, filter-version slots, next-hop, ...)
// share ids across protocols; protocol-specific ids occupy a private range.
type Id uint32

// Reserved generic variable ids, shared across every protocol.
const (
	IdPolicyTags Id = iota
	IdFilterSlot0
	IdFilterSlot1
	IdFilterSlot2
	IdNextHop4
	IdNextHop6
	IdTrace
	IdSourceProtocol

	IdProtocolPrivateBase Id = 1 << 16 // protocol-specific ids start here
)

type varEntry struct {
	id     Id
	typ    value.Kind
	access Access
}

// VarMap is the authoritative catalog of per-protocol variables.
type VarMap struct {
	mu    sync.RWMutex
	byKey map[protoName]varEntry
	byId  map[Id]varEntry
}

type protoName struct {
	protocol, name string
}

func New() *VarMap {
	vm := &VarMap{
		byKey: make(map[protoName]varEntry),
		byId:  make(map[Id]varEntry),
	}
	vm.declareGeneric()
	return vm
}

func (vm *VarMap) declareGeneric() {
	generic := []struct {
		name   string
		id     Id
		typ    value.Kind
		access Access
	}{
		{"policy-tags", IdPolicyTags, value.KindSet32, ReadWrite},
		{"filter-slot-0", IdFilterSlot0, value.KindFilterHandle, ReadWrite},
		{"filter-slot-1", IdFilterSlot1, value.KindFilterHandle, ReadWrite},
		{"filter-slot-2", IdFilterSlot2, value.KindFilterHandle, ReadWrite},
		{"nexthop4", IdNextHop4, value.KindNextHop4, ReadWrite},
		{"nexthop6", IdNextHop6, value.KindNextHop6, ReadWrite},
		{"trace", IdTrace, value.KindBool, ReadWrite},
		{"source-protocol", IdSourceProtocol, value.KindStr, ReadOnly},
	}
	for _, g := range generic {
		e := varEntry{id: g.id, typ: g.typ, access: g.access}
		vm.byId[g.id] = e
		// generic variables are visible under every protocol namespace
		vm.byKey[protoName{"*", g.name}] = e
	}
}

// Declare registers a protocol-specific variable. Called at startup by each
// protocol adapter.
func (vm *VarMap) Declare(protocol, name string, typ value.Kind, access Access, id Id) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	key := protoName{protocol, name}
	if _, ok := vm.byKey[key]; ok {
		return fmt.Errorf("%w: variable %s/%s already declared", util.ErrAlreadyExists, protocol, name)
	}
	e := varEntry{id: id, typ: typ, access: access}
	vm.byKey[key] = e
	vm.byId[id] = e
	return nil
}

// UnknownVariableError reports a lookup miss in the VarMap.
type UnknownVariableError struct {
	Protocol, Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %s/%s", e.Protocol, e.Name)
}

func (e *UnknownVariableError) Unwrap() error { return util.ErrNotFound }

// Var2Id resolves a (protocol, name) pair to its numeric id, checking the
// protocol-specific namespace first and falling back to generic variables.
func (vm *VarMap) Var2Id(protocol, name string) (Id, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if e, ok := vm.byKey[protoName{protocol, name}]; ok {
		return e.id, nil
	}
	if e, ok := vm.byKey[protoName{"*", name}]; ok {
		return e.id, nil
	}
	return 0, &UnknownVariableError{Protocol: protocol, Name: name}
}

// TypeOf returns the declared type of a variable id.
func (vm *VarMap) TypeOf(id Id) (value.Kind, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	e, ok := vm.byId[id]
	return e.typ, ok
}

// AccessOf returns the declared access of a variable id.
func (vm *VarMap) AccessOf(id Id) (Access, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	e, ok := vm.byId[id]
	return e.access, ok
}

// Declared returns the names of every variable visible under protocol,
// generic variables included, sorted for stable CLI output.
func (vm *VarMap) Declared(protocol string) []string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	var names []string
	for key := range vm.byKey {
		if key.protocol == protocol || key.protocol == "*" {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}
