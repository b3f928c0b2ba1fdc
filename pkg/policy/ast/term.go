package ast

import (
	"fmt"

	"github.com/newtron-network/routepolicy/pkg/util"
)

// Term is the atomic policy unit: an ordered triple of source-match,
// dest-match, and action blocks, each an ordered sequence of statements.
type Term struct {
	Name   string
	Source *OrderedContainer[*Node]
	Dest   *OrderedContainer[*Node]
	Action *OrderedContainer[*Node]
}

func NewTerm(name string) *Term {
	return &Term{
		Name:   name,
		Source: NewOrderedContainer[*Node](),
		Dest:   NewOrderedContainer[*Node](),
		Action: NewOrderedContainer[*Node](),
	}
}

// Block returns the ordered container for the named block.
func (t *Term) Block(b Block) *OrderedContainer[*Node] {
	switch b {
	case BlockSource:
		return t.Source
	case BlockDest:
		return t.Dest
	case BlockAction:
		return t.Action
	}
	return nil
}

// Finalize flushes any still-buffered out-of-order statements in every
// block, called at end-of-policy.
func (t *Term) Finalize() {
	t.Source.Finalize()
	t.Dest.Finalize()
	t.Action.Finalize()
}

// PolicyStatement is a named ordered sequence of Terms. Term names must be
// unique within a policy.
type PolicyStatement struct {
	Name  string
	terms *OrderedContainer[*Term]
	names map[string]string // term name -> ConfigNodeId, for uniqueness + lookup by name
}

func NewPolicyStatement(name string) *PolicyStatement {
	return &PolicyStatement{
		Name:  name,
		terms: NewOrderedContainer[*Term](),
		names: make(map[string]string),
	}
}

// AddTerm inserts a term at the ordered position named by id. Returns an
// error if a term with the same name already exists under a different id.
func (p *PolicyStatement) AddTerm(id ConfigNodeId, t *Term) error {
	if existingID, ok := p.names[t.Name]; ok && existingID != id.ID {
		return fmt.Errorf("%w: term %q already exists in policy %q", util.ErrAlreadyExists, t.Name, p.Name)
	}
	p.names[t.Name] = id.ID
	p.terms.Insert(id, t)
	return nil
}

// DeleteTerm removes a term by ConfigNodeId. Deleting a missing term is a
// silent success.
func (p *PolicyStatement) DeleteTerm(id string) {
	if t, ok := p.terms.Get(id); ok {
		delete(p.names, t.Name)
	}
	p.terms.Delete(id)
}

// TermByName looks up a term by its user-visible name.
func (p *PolicyStatement) TermByName(name string) (*Term, bool) {
	id, ok := p.names[name]
	if !ok {
		return nil, false
	}
	return p.terms.Get(id)
}

// Finalize flushes any remaining out-of-order terms to the tail (with a
// warning) and finalizes every term's blocks. A policy is valid only after
// this runs.
func (p *PolicyStatement) Finalize() {
	p.terms.Finalize()
	for _, t := range p.terms.InOrder() {
		t.Finalize()
	}
}

// Terms returns the terms in policy-evaluation order.
func (p *PolicyStatement) Terms() []*Term {
	return p.terms.InOrder()
}
