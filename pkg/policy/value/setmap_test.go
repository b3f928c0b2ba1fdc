package value

import (
	"errors"
	"testing"

	"github.com/newtron-network/routepolicy/pkg/util"
)

func TestSetMapCreateAndGet(t *testing.T) {
	m := NewSetMap()
	if err := m.Create("as-path-filter", KindSet32); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	v, ok := m.Get("as-path-filter")
	if !ok {
		t.Fatal("Get() after Create() should find the set")
	}
	if len(v.Members()) != 0 {
		t.Errorf("newly created set should be empty, got %v", v.Members())
	}
}

func TestSetMapCreateDuplicate(t *testing.T) {
	m := NewSetMap()
	if err := m.Create("dup", KindSet32); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	err := m.Create("dup", KindSet32)
	if !errors.Is(err, util.ErrAlreadyExists) {
		t.Errorf("Create() duplicate = %v, want util.ErrAlreadyExists", err)
	}
}

func TestSetMapUpdateMissing(t *testing.T) {
	m := NewSetMap()
	err := m.Update("nope", Set32([]uint32{1}))
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Update() missing = %v, want util.ErrNotFound", err)
	}
}

func TestSetMapAddRemove(t *testing.T) {
	m := NewSetMap()
	if err := m.Create("communities", KindCommunitySet); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := m.Add("communities", 100); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := m.Add("communities", 200); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	v, _ := m.Get("communities")
	if !v.Contains(100) || !v.Contains(200) {
		t.Errorf("expected both members present, got %v", v.Members())
	}

	if err := m.Remove("communities", 100); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	v, _ = m.Get("communities")
	if v.Contains(100) {
		t.Error("Remove() should have removed 100")
	}
	if !v.Contains(200) {
		t.Error("Remove() should not have removed 200")
	}
}

func TestSetMapDeleteInUse(t *testing.T) {
	m := NewSetMap()
	if err := m.Create("blocked", KindSet32); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	m.SetDependents("blocked", map[string]struct{}{"import-policy": {}})

	err := m.Delete("blocked")
	if !errors.Is(err, util.ErrInUse) {
		t.Fatalf("Delete() in-use = %v, want util.ErrInUse", err)
	}
	if _, ok := m.Get("blocked"); !ok {
		t.Error("Delete() should not have removed the set while in use")
	}
}

func TestSetMapDeleteMissingIsSilentSuccess(t *testing.T) {
	m := NewSetMap()
	if err := m.Delete("never-existed"); err != nil {
		t.Errorf("Delete() on missing set should silently succeed, got %v", err)
	}
}

func TestSetMapDeleteClearsDependents(t *testing.T) {
	m := NewSetMap()
	if err := m.Create("free", KindSet32); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := m.Delete("free"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok := m.Get("free"); ok {
		t.Error("Delete() should remove the set")
	}
}

func TestSetMapNamesSorted(t *testing.T) {
	m := NewSetMap()
	m.Create("zebra", KindSet32)
	m.Create("apple", KindSet32)
	names := m.Names()
	if len(names) != 2 || names[0] != "apple" || names[1] != "zebra" {
		t.Errorf("Names() = %v, want sorted [apple zebra]", names)
	}
}
