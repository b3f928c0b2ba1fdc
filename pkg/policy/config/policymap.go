package config

import "github.com/newtron-network/routepolicy/pkg/policy/ast"

// PolicyMap owns every named policy statement in the configuration and
// implements check.PolicyLookup so the semantic checker can resolve Subr
// references without depending on the config package.
type PolicyMap struct {
	policies map[string]*ast.PolicyStatement
}

func NewPolicyMap() *PolicyMap {
	return &PolicyMap{policies: make(map[string]*ast.PolicyStatement)}
}

func (m *PolicyMap) Lookup(name string) (*ast.PolicyStatement, bool) {
	p, ok := m.policies[name]
	return p, ok
}

func (m *PolicyMap) Names() []string {
	out := make([]string, 0, len(m.policies))
	for n := range m.policies {
		out = append(out, n)
	}
	return out
}
