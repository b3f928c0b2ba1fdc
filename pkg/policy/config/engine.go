// Package config implements the configuration-delta surface described in
// the interface spec: the small set of create/update/delete operations a
// config driver issues, modified-policy/modified-target tracking, and the
// debounced commit pipeline that turns a batch of deltas into freshly
// linked filter images handed to a FilterManager.
package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newtron-network/routepolicy/pkg/policy"
	"github.com/newtron-network/routepolicy/pkg/policy/ast"
	"github.com/newtron-network/routepolicy/pkg/policy/check"
	"github.com/newtron-network/routepolicy/pkg/policy/codegen"
	"github.com/newtron-network/routepolicy/pkg/policy/filtermgr"
	"github.com/newtron-network/routepolicy/pkg/policy/metrics"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
	"github.com/newtron-network/routepolicy/pkg/util"
)

// DependencyError reports a delete refused because the object is still
// referenced elsewhere in the configuration.
type DependencyError struct {
	Resource string
	UsedBy   []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s is in use by: %v", e.Resource, e.UsedBy)
}

func (e *DependencyError) Unwrap() error { return policy.ErrDependency }

// Engine owns every core data structure described in the data model —
// VarMap, SetMap, PolicyMap, the tag allocator, the per-protocol
// import/export lists, and the modified-policies/modified-targets sets —
// and is the sole entry point through which they are mutated. The single-
// threaded contract means no internal locking is needed for these; the
// mutex here guards the debounce timer and serializes commit passes, since
// a debounced commit runs on a timer goroutine.
type Engine struct {
	VarMap   *varmap.VarMap
	Sets     *value.SetMap
	Policies *PolicyMap
	Tags     *codegen.TagAllocator

	Filter  filtermgr.FilterManager
	Metrics *metrics.Metrics

	imports map[string][]string // protocol -> ordered policy names
	exports map[string][]string

	modifiedPolicies map[string]struct{}
	modifiedTargets  map[codegen.Target]struct{}

	mu          sync.Mutex
	debounce    *time.Timer
	commitSeq   int
}

func New(filter filtermgr.FilterManager) *Engine {
	return &Engine{
		VarMap:           varmap.New(),
		Sets:             value.NewSetMap(),
		Policies:         NewPolicyMap(),
		Tags:             codegen.NewTagAllocator(),
		Filter:           filter,
		Metrics:          metrics.New(),
		imports:          make(map[string][]string),
		exports:          make(map[string][]string),
		modifiedPolicies: make(map[string]struct{}),
		modifiedTargets:  make(map[codegen.Target]struct{}),
	}
}

func (e *Engine) markPolicyModified(name string) {
	e.modifiedPolicies[name] = struct{}{}
	e.Metrics.ModifiedPolicies.Set(float64(len(e.modifiedPolicies)))
}

func (e *Engine) markTargetModified(t codegen.Target) {
	e.modifiedTargets[t] = struct{}{}
	e.Metrics.ModifiedTargets.Set(float64(len(e.modifiedTargets)))
}

// CreatePolicy creates an empty policy. Re-creating an existing name is a
// no-op success (matching the teacher's idempotent create_* convention).
func (e *Engine) CreatePolicy(name string) error {
	if _, ok := e.Policies.policies[name]; ok {
		return nil
	}
	e.Policies.policies[name] = ast.NewPolicyStatement(name)
	e.markPolicyModified(name)
	return nil
}

// DeletePolicy removes a policy, failing if another policy Subr-references
// it or if it is bound into any protocol's import/export list.
func (e *Engine) DeletePolicy(name string) error {
	if _, ok := e.Policies.policies[name]; !ok {
		return nil // delete of a missing policy is a silent success
	}
	var usedBy []string
	for proto, list := range e.imports {
		for _, p := range list {
			if p == name {
				usedBy = append(usedBy, fmt.Sprintf("import:%s", proto))
			}
		}
	}
	for proto, list := range e.exports {
		for _, p := range list {
			if p == name {
				usedBy = append(usedBy, fmt.Sprintf("export:%s", proto))
			}
		}
	}
	for other, p := range e.Policies.policies {
		if other == name {
			continue
		}
		for _, t := range p.Terms() {
			for _, n := range t.Action.InOrder() {
				if n.Kind == ast.NodeSubr && n.PolicyName == name {
					usedBy = append(usedBy, "policy:"+other)
				}
			}
		}
	}
	if len(usedBy) > 0 {
		return &DependencyError{Resource: "policy " + name, UsedBy: usedBy}
	}
	delete(e.Policies.policies, name)
	e.markPolicyModified(name)
	return nil
}

// CreateTerm adds a new term to policy at the ordered position named by id.
func (e *Engine) CreateTerm(policyName string, id ast.ConfigNodeId, termName string) error {
	p, ok := e.Policies.policies[policyName]
	if !ok {
		return fmt.Errorf("%w: policy %q", util.ErrNotFound, policyName)
	}
	if err := p.AddTerm(id, ast.NewTerm(termName)); err != nil {
		return err
	}
	e.markPolicyModified(policyName)
	return nil
}

// DeleteTerm removes a term; deleting a missing term is a silent success.
func (e *Engine) DeleteTerm(policyName, termID string) error {
	p, ok := e.Policies.policies[policyName]
	if !ok {
		return fmt.Errorf("%w: policy %q", util.ErrNotFound, policyName)
	}
	p.DeleteTerm(termID)
	e.markPolicyModified(policyName)
	return nil
}

// UpdateTermBlock parses statement and inserts or replaces it at the
// ordered position named by id within the given term and block.
func (e *Engine) UpdateTermBlock(policyName, termName string, block ast.Block, id ast.ConfigNodeId, statement string) error {
	p, ok := e.Policies.policies[policyName]
	if !ok {
		return fmt.Errorf("%w: policy %q", util.ErrNotFound, policyName)
	}
	t, ok := p.TermByName(termName)
	if !ok {
		return fmt.Errorf("%w: term %q in policy %q", util.ErrNotFound, termName, policyName)
	}
	n, err := ast.Parse(statement, 0)
	if err != nil {
		return err
	}
	t.Block(block).Insert(id, n)
	e.markPolicyModified(policyName)
	return nil
}

// CreateSet creates an empty named set.
func (e *Engine) CreateSet(name string, kind value.Kind) error {
	if err := e.Sets.Create(name, kind); err != nil {
		if err == util.ErrAlreadyExists {
			return nil
		}
		return err
	}
	return nil
}

// UpdateSet atomically replaces a set's contents from a comma-separated
// element list.
func (e *Engine) UpdateSet(kind value.Kind, name, csv string) error {
	members, err := ParseSetElements(kind, csv)
	if err != nil {
		return err
	}
	var v value.Value
	if kind == value.KindCommunitySet {
		v = value.CommunitySet(members)
	} else {
		v = value.Set32(members)
	}
	if err := e.Sets.Update(name, v); err != nil {
		return err
	}
	e.markDependentsModified(name)
	return nil
}

// AddToSet / DeleteFromSet incrementally mutate a set's members.
func (e *Engine) AddToSet(kind value.Kind, name, element string) error {
	members, err := ParseSetElements(kind, element)
	if err != nil {
		return err
	}
	if len(members) != 1 {
		return fmt.Errorf("add_to_set expects exactly one element, got %d", len(members))
	}
	if err := e.Sets.Add(name, members[0]); err != nil {
		return err
	}
	e.markDependentsModified(name)
	return nil
}

func (e *Engine) DeleteFromSet(kind value.Kind, name, element string) error {
	members, err := ParseSetElements(kind, element)
	if err != nil {
		return err
	}
	if len(members) != 1 {
		return fmt.Errorf("delete_from_set expects exactly one element, got %d", len(members))
	}
	if err := e.Sets.Remove(name, members[0]); err != nil {
		return err
	}
	e.markDependentsModified(name)
	return nil
}

// DeleteSet removes a set, failing with a util.InUseError if a policy
// depends on it.
func (e *Engine) DeleteSet(name string) error {
	return e.Sets.Delete(name)
}

func (e *Engine) markDependentsModified(setName string) {
	for _, dep := range e.Sets.Dependents(setName) {
		e.markPolicyModified(dep)
	}
}

// UpdateImports replaces protocol's ordered import-policy list.
func (e *Engine) UpdateImports(protocol string, policyNames []string) error {
	e.imports[protocol] = append([]string(nil), policyNames...)
	e.markTargetModified(codegen.Target{Protocol: protocol, Kind: codegen.FilterImport})
	return nil
}

// UpdateExports replaces protocol's ordered export-policy list.
func (e *Engine) UpdateExports(protocol string, policyNames []string) error {
	e.exports[protocol] = append([]string(nil), policyNames...)
	e.markTargetModified(codegen.Target{Protocol: protocol, Kind: codegen.FilterExport})
	for _, name := range policyNames {
		if p, ok := e.Policies.policies[name]; ok {
			for _, sp := range sourceProtocolsOf(p) {
				e.markTargetModified(codegen.Target{Protocol: sp, Kind: codegen.FilterExportSourceMatch})
			}
		}
	}
	return nil
}

// AddVarMap declares a protocol-specific variable.
func (e *Engine) AddVarMap(proto, name string, typ value.Kind, access varmap.Access, id varmap.Id) error {
	return e.VarMap.Declare(proto, name, typ, access, id)
}

// sourceProtocolsOf scans every term's source-match block for Proto nodes,
// returning the distinct protocol names referenced.
func sourceProtocolsOf(p *ast.PolicyStatement) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range p.Terms() {
		for _, n := range t.Source.InOrder() {
			if n.Kind == ast.NodeProto {
				if _, ok := seen[n.ProtoName]; !ok {
					seen[n.ProtoName] = struct{}{}
					out = append(out, n.ProtoName)
				}
			}
		}
	}
	return out
}

// Commit schedules a debounced recompile/relink pass. Repeated calls within
// the debounce window restart the timer, coalescing bursts of deltas into
// one hand-off per affected target.
func (e *Engine) Commit(debounceMillis int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounce = time.AfterFunc(time.Duration(debounceMillis)*time.Millisecond, func() {
		if err := e.runCommit(context.Background()); err != nil {
			util.WithField("component", "policy-config").Errorf("commit failed: %v", err)
		}
	})
}

// CommitNow runs the compile/link/hand-off pipeline synchronously,
// bypassing the debounce timer — used by tests and by the CLI's `commit`
// and `vm eval` commands.
func (e *Engine) CommitNow(ctx context.Context) error {
	e.mu.Lock()
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
	e.mu.Unlock()
	return e.runCommit(ctx)
}

func (e *Engine) runCommit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	log := util.WithField("component", "policy-config")
	e.commitSeq++
	seq := e.commitSeq

	if err := e.recompileModified(); err != nil {
		log.Errorf("commit %d aborted: %v", seq, err)
		return err
	}
	if err := e.relinkModified(ctx); err != nil {
		log.Errorf("commit %d aborted during link: %v", seq, err)
		return err
	}

	e.modifiedPolicies = make(map[string]struct{})
	e.modifiedTargets = make(map[codegen.Target]struct{})
	e.Metrics.ModifiedPolicies.Set(0)
	e.Metrics.ModifiedTargets.Set(0)
	e.Metrics.Commits.Inc()
	e.Metrics.CommitDuration.Observe(time.Since(start).Seconds())
	log.Infof("commit %d complete in %s", seq, time.Since(start))
	return nil
}

// recompileModified semantically checks every policy in modifiedPolicies,
// for each direction it participates in, failing fast (aborting the whole
// commit) on the first semantic error, per the spec's all-or-nothing
// commit contract.
func (e *Engine) recompileModified() error {
	for name := range e.modifiedPolicies {
		p, ok := e.Policies.policies[name]
		if !ok {
			continue // deleted since being marked modified
		}
		p.Finalize()
		for _, proto := range e.protocolsUsing(name, e.imports) {
			if err := e.checkPolicy(p, proto, check.Import); err != nil {
				return err
			}
			e.markTargetModified(codegen.Target{Protocol: proto, Kind: codegen.FilterImport})
		}
		for _, proto := range e.protocolsUsing(name, e.exports) {
			if err := e.checkPolicy(p, proto, check.Export); err != nil {
				return err
			}
			e.markTargetModified(codegen.Target{Protocol: proto, Kind: codegen.FilterExport})
			for _, sp := range sourceProtocolsOf(p) {
				e.markTargetModified(codegen.Target{Protocol: sp, Kind: codegen.FilterExportSourceMatch})
			}
		}
		e.Metrics.Compiles.Inc()
	}
	return nil
}

func (e *Engine) protocolsUsing(policyName string, lists map[string][]string) []string {
	var out []string
	for proto, list := range lists {
		for _, p := range list {
			if p == policyName {
				out = append(out, proto)
				break
			}
		}
	}
	return out
}

func (e *Engine) checkPolicy(p *ast.PolicyStatement, protocol string, dir check.Direction) error {
	c := &check.Checker{VarMap: e.VarMap, Protocol: protocol, Direction: dir, Policies: e.Policies, Sets: e.Sets}
	res, err := c.Check(p)
	if err != nil {
		return err
	}
	for _, setName := range e.Sets.Names() {
		deps := map[string]struct{}{}
		for _, d := range e.Sets.Dependents(setName) {
			if d != p.Name {
				deps[d] = struct{}{}
			}
		}
		if _, ok := res.SetDeps[setName]; ok {
			deps[p.Name] = struct{}{}
		}
		e.Sets.SetDependents(setName, deps)
	}
	_ = res.PolicyDeps // sub-policy dependents are derived live from AST in DeletePolicy
	return nil
}

// relinkModified relinks every target in modifiedTargets and hands the new
// image to the FilterManager.
func (e *Engine) relinkModified(ctx context.Context) error {
	for target := range e.modifiedTargets {
		fragments, err := e.fragmentsFor(target)
		if err != nil {
			return err
		}
		code := codegen.Link(fragments)
		generation := 0
		if cur, ok := e.Filter.Current(target); ok {
			generation = (cur.Generation + 1) % 3
		}
		image := codegen.Image{Target: target, Code: code, Generation: generation}
		if err := e.Filter.Install(ctx, image); err != nil {
			return fmt.Errorf("installing image for %s: %w", target, err)
		}
		e.Metrics.Links.Inc()
	}
	return nil
}

func (e *Engine) fragmentsFor(target codegen.Target) ([]codegen.Fragment, error) {
	var policyNames []string
	var tags *codegen.TagAllocator

	switch target.Kind {
	case codegen.FilterImport:
		policyNames = e.imports[target.Protocol]
	case codegen.FilterExport:
		policyNames = e.exports[target.Protocol]
		tags = e.Tags
	case codegen.FilterExportSourceMatch:
		tags = e.Tags
		for _, list := range e.exports {
			for _, name := range list {
				p, ok := e.Policies.policies[name]
				if !ok {
					continue
				}
				for _, sp := range sourceProtocolsOf(p) {
					if sp == target.Protocol {
						policyNames = append(policyNames, name)
					}
				}
			}
		}
	}

	fragments := make([]codegen.Fragment, 0, len(policyNames))
	for _, name := range policyNames {
		p, ok := e.Policies.policies[name]
		if !ok {
			return nil, fmt.Errorf("%w: policy %q named by target %s", util.ErrNotFound, name, target)
		}
		var code codegen.Code
		for _, t := range p.Terms() {
			termCode, err := codegen.Lower(e.VarMap, target.Protocol, t, tags)
			if err != nil {
				return nil, err
			}
			code = append(code, termCode...)
		}
		fragments = append(fragments, codegen.Fragment{Policy: name, Code: code})
	}
	return fragments, nil
}
