package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/routepolicy/pkg/policy/ast"
	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/policy/varmap"
)

// Bundle is a YAML snapshot of an initial configuration, replayed at
// startup as an ordered sequence of the same delta operations a config
// driver would issue one at a time. Replay takes no separate path into the
// Engine: Apply produces no state that the same live deltas would not.
type Bundle struct {
	VarMap   []BundleVar    `yaml:"varmap,omitempty"`
	Sets     []BundleSet    `yaml:"sets,omitempty"`
	Policies []BundlePolicy `yaml:"policies,omitempty"`
	Imports  map[string][]string `yaml:"imports,omitempty"`
	Exports  map[string][]string `yaml:"exports,omitempty"`
}

type BundleVar struct {
	Protocol string `yaml:"protocol"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Access   string `yaml:"access"`
	Id       uint32 `yaml:"id"`
}

type BundleSet struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	CSV  string `yaml:"elements"`
}

type BundlePolicy struct {
	Name  string        `yaml:"name"`
	Terms []BundleTerm  `yaml:"terms"`
}

type BundleTerm struct {
	Name      string `yaml:"name"`
	Source    string `yaml:"source,omitempty"`
	Dest      string `yaml:"dest,omitempty"`
	Action    string `yaml:"action,omitempty"`
}

// LoadBundle reads a YAML bundle file. Call Apply to replay it into an
// Engine, minting a ConfigNodeId per statement/term since the bundle itself
// carries no ids. Bundle order is the replay order, so predecessors
// (variable declarations, set creation, policy creation) must precede their
// dependents the same way live deltas would.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b := &Bundle{}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Apply replays every operation in the bundle against e, in bundle order.
func (b *Bundle) Apply(e *Engine) error {
	for _, v := range b.VarMap {
		kind, err := parseKind(v.Type)
		if err != nil {
			return fmt.Errorf("varmap entry %s.%s: %w", v.Protocol, v.Name, err)
		}
		access := varmap.ReadOnly
		if v.Access == "rw" || v.Access == "read-write" {
			access = varmap.ReadWrite
		}
		if err := e.AddVarMap(v.Protocol, v.Name, kind, access, varmap.Id(v.Id)); err != nil {
			return fmt.Errorf("varmap entry %s.%s: %w", v.Protocol, v.Name, err)
		}
	}

	for _, s := range b.Sets {
		kind, err := parseKind(s.Type)
		if err != nil {
			return fmt.Errorf("set %s: %w", s.Name, err)
		}
		if err := e.CreateSet(s.Name, kind); err != nil {
			return fmt.Errorf("set %s: %w", s.Name, err)
		}
		if s.CSV != "" {
			if err := e.UpdateSet(kind, s.Name, s.CSV); err != nil {
				return fmt.Errorf("set %s: %w", s.Name, err)
			}
		}
	}

	for _, p := range b.Policies {
		if err := e.CreatePolicy(p.Name); err != nil {
			return fmt.Errorf("policy %s: %w", p.Name, err)
		}
		prevID := ""
		for _, t := range p.Terms {
			id := ast.NewConfigNodeId(prevID)
			prevID = id.ID
			if err := e.CreateTerm(p.Name, id, t.Name); err != nil {
				return fmt.Errorf("policy %s term %s: %w", p.Name, t.Name, err)
			}
			if t.Source != "" {
				if err := e.UpdateTermBlock(p.Name, t.Name, ast.BlockSource, ast.NewConfigNodeId(""), t.Source); err != nil {
					return fmt.Errorf("policy %s term %s source: %w", p.Name, t.Name, err)
				}
			}
			if t.Dest != "" {
				if err := e.UpdateTermBlock(p.Name, t.Name, ast.BlockDest, ast.NewConfigNodeId(""), t.Dest); err != nil {
					return fmt.Errorf("policy %s term %s dest: %w", p.Name, t.Name, err)
				}
			}
			if t.Action != "" {
				if err := e.UpdateTermBlock(p.Name, t.Name, ast.BlockAction, ast.NewConfigNodeId(""), t.Action); err != nil {
					return fmt.Errorf("policy %s term %s action: %w", p.Name, t.Name, err)
				}
			}
		}
	}

	for proto, names := range b.Imports {
		if err := e.UpdateImports(proto, names); err != nil {
			return fmt.Errorf("imports %s: %w", proto, err)
		}
	}
	for proto, names := range b.Exports {
		if err := e.UpdateExports(proto, names); err != nil {
			return fmt.Errorf("exports %s: %w", proto, err)
		}
	}

	return nil
}

// SaveTo writes the bundle to path as YAML, creating parent directories as
// needed. This is policyd's persistence mechanism: the CLI mutates a Bundle
// in place across invocations and replays it into a fresh Engine only at
// commit time.
func (b *Bundle) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func parseKind(s string) (value.Kind, error) {
	switch s {
	case "u32":
		return value.KindU32, nil
	case "bool":
		return value.KindBool, nil
	case "str":
		return value.KindStr, nil
	case "ipv4":
		return value.KindIPv4, nil
	case "ipv6":
		return value.KindIPv6, nil
	case "ipv4net":
		return value.KindIPv4Net, nil
	case "ipv6net":
		return value.KindIPv6Net, nil
	case "nexthop4":
		return value.KindNextHop4, nil
	case "nexthop6":
		return value.KindNextHop6, nil
	case "aspath":
		return value.KindASPath, nil
	case "community-set":
		return value.KindCommunitySet, nil
	case "set32":
		return value.KindSet32, nil
	case "filter-handle":
		return value.KindFilterHandle, nil
	default:
		return 0, fmt.Errorf("unknown varmap/set type %q", s)
	}
}
