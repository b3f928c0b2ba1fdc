// Package value implements the tagged-variant runtime value model shared by
// the policy compiler and the VM.
package value

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindU32 Kind = iota
	KindBool
	KindStr
	KindIPv4
	KindIPv6
	KindIPv4Net
	KindIPv6Net
	KindNextHop4
	KindNextHop6
	KindASPath
	KindCommunitySet
	KindSet32
	KindFilterHandle
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindU32:
		return "u32"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindIPv4:
		return "ipv4"
	case KindIPv6:
		return "ipv6"
	case KindIPv4Net:
		return "ipv4net"
	case KindIPv6Net:
		return "ipv6net"
	case KindNextHop4:
		return "nexthop4"
	case KindNextHop6:
		return "nexthop6"
	case KindASPath:
		return "aspath"
	case KindCommunitySet:
		return "community-set"
	case KindSet32:
		return "set32"
	case KindFilterHandle:
		return "filter-handle"
	case KindNull:
		return "null"
	}
	return "unknown"
}

// NextHopSpecial enumerates the special nexthop markers, distinct from a
// concrete address.
type NextHopSpecial int

const (
	NextHopNone NextHopSpecial = iota
	NextHopSelf
	NextHopPeerAddress
	NextHopDiscard
	NextHopReject
	NextHopNextTable
)

// NextHop holds either a concrete address or a special marker.
type NextHop struct {
	Special NextHopSpecial
	Addr    net.IP
}

// Net pairs an address with a prefix length.
type Net struct {
	Addr   net.IP
	Prefix int
}

func (n Net) String() string {
	return fmt.Sprintf("%s/%d", n.Addr.String(), n.Prefix)
}

// FilterHandle is an opaque, reference-counted handle to a compiled filter
// image, used by the versioned-filter mechanism.
type FilterHandle struct {
	Target      string
	Generation  int
	refcount    *int32
}

// Value is an immutable tagged variant. Once constructed a Value is never
// mutated; operators and the VM always produce new Values.
type Value struct {
	kind Kind

	u32  uint32
	b    bool
	str  string
	ip   net.IP
	net  Net
	nh   NextHop
	path []uint32 // ASPath, in order
	comm map[uint32]struct{}
	set  map[uint32]struct{}
	fh   FilterHandle
}

func (v Value) Kind() Kind { return v.kind }

func U32(n uint32) Value   { return Value{kind: KindU32, u32: n} }
func Bool(b bool) Value    { return Value{kind: KindBool, b: b} }
func Str(s string) Value   { return Value{kind: KindStr, str: s} }
func Null() Value          { return Value{kind: KindNull} }
func IPv4(ip net.IP) Value { return Value{kind: KindIPv4, ip: ip} }
func IPv6(ip net.IP) Value { return Value{kind: KindIPv6, ip: ip} }

func IPv4Net(n Net) Value { return Value{kind: KindIPv4Net, net: n} }
func IPv6Net(n Net) Value { return Value{kind: KindIPv6Net, net: n} }

func NextHop4(nh NextHop) Value { return Value{kind: KindNextHop4, nh: nh} }
func NextHop6(nh NextHop) Value { return Value{kind: KindNextHop6, nh: nh} }

// ASPath constructs an AS-path value from an ordered sequence of AS numbers.
func ASPath(asns []uint32) Value {
	cp := make([]uint32, len(asns))
	copy(cp, asns)
	return Value{kind: KindASPath, path: cp}
}

// CommunitySet constructs a community-set value; duplicates collapse.
func CommunitySet(communities []uint32) Value {
	m := make(map[uint32]struct{}, len(communities))
	for _, c := range communities {
		m[c] = struct{}{}
	}
	return Value{kind: KindCommunitySet, comm: m}
}

// Set32 constructs an unordered set of u32 values.
func Set32(members []uint32) Value {
	m := make(map[uint32]struct{}, len(members))
	for _, x := range members {
		m[x] = struct{}{}
	}
	return Value{kind: KindSet32, set: m}
}

func NewFilterHandle(target string, generation int) Value {
	rc := int32(1)
	return Value{kind: KindFilterHandle, fh: FilterHandle{Target: target, Generation: generation, refcount: &rc}}
}

func (v Value) U32() uint32             { return v.u32 }
func (v Value) Bool() bool              { return v.b }
func (v Value) Str() string             { return v.str }
func (v Value) IP() net.IP              { return v.ip }
func (v Value) Net() Net                { return v.net }
func (v Value) NextHopVal() NextHop     { return v.nh }
func (v Value) ASPathList() []uint32    { return v.path }
func (v Value) FilterHandleVal() FilterHandle { return v.fh }

// Members returns the sorted member list of a CommunitySet or Set32 value.
func (v Value) Members() []uint32 {
	var m map[uint32]struct{}
	switch v.kind {
	case KindCommunitySet:
		m = v.comm
	case KindSet32:
		m = v.set
	default:
		return nil
	}
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether x is a member of a CommunitySet or Set32 value.
func (v Value) Contains(x uint32) bool {
	switch v.kind {
	case KindCommunitySet:
		_, ok := v.comm[x]
		return ok
	case KindSet32:
		_, ok := v.set[x]
		return ok
	}
	return false
}

// String renders a canonical, re-parseable textual form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindU32:
		return fmt.Sprintf("%d", v.u32)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindStr:
		return fmt.Sprintf("%q", v.str)
	case KindIPv4, KindIPv6:
		return v.ip.String()
	case KindIPv4Net, KindIPv6Net:
		return v.net.String()
	case KindNextHop4, KindNextHop6:
		switch v.nh.Special {
		case NextHopSelf:
			return "self"
		case NextHopPeerAddress:
			return "peer-address"
		case NextHopDiscard:
			return "discard"
		case NextHopReject:
			return "reject"
		case NextHopNextTable:
			return "next-table"
		default:
			return v.nh.Addr.String()
		}
	case KindASPath:
		parts := make([]string, len(v.path))
		for i, a := range v.path {
			parts[i] = fmt.Sprintf("%d", a)
		}
		return strings.Join(parts, " ")
	case KindCommunitySet:
		members := v.Members()
		parts := make([]string, len(members))
		for i, m := range members {
			parts[i] = fmt.Sprintf("%d:%d", m>>16, m&0xffff)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindSet32:
		members := v.Members()
		parts := make([]string, len(members))
		for i, m := range members {
			parts[i] = fmt.Sprintf("%d", m)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindFilterHandle:
		return fmt.Sprintf("filter(%s#%d)", v.fh.Target, v.fh.Generation)
	case KindNull:
		return "null"
	}
	return "?"
}

// Equal implements the `==` operator's identity notion across all variants
// the dispatcher declares `==` for.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindU32:
		return v.u32 == other.u32
	case KindBool:
		return v.b == other.b
	case KindStr:
		return v.str == other.str
	case KindIPv4, KindIPv6:
		return v.ip.Equal(other.ip)
	case KindIPv4Net, KindIPv6Net:
		return v.net.Prefix == other.net.Prefix && v.net.Addr.Equal(other.net.Addr)
	case KindASPath:
		if len(v.path) != len(other.path) {
			return false
		}
		for i := range v.path {
			if v.path[i] != other.path[i] {
				return false
			}
		}
		return true
	case KindCommunitySet, KindSet32:
		a, b := v.Members(), other.Members()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	case KindNull:
		return true
	}
	return false
}
