package value

import (
	"encoding/json"
	"fmt"
	"net"
)

// wireValue is the JSON wire representation the spec requires: every
// immediate value carries its variant tag explicitly rather than relying
// on JSON's own type inference, so a FilterManager transport (Redis
// pub/sub, a framed socket, ...) can recompile regex patterns and
// reconstruct typed members on the receiving side.
type wireValue struct {
	Kind  string   `json:"kind"`
	U32   uint32   `json:"u32,omitempty"`
	Bool  bool     `json:"bool,omitempty"`
	Str   string   `json:"str,omitempty"`
	IP    string   `json:"ip,omitempty"`
	Net   string   `json:"net,omitempty"`
	NHSpecial int  `json:"nh_special,omitempty"`
	NHAddr    string `json:"nh_addr,omitempty"`
	Path  []uint32 `json:"path,omitempty"`
	Members []uint32 `json:"members,omitempty"`
	FHTarget string `json:"fh_target,omitempty"`
	FHGen    int    `json:"fh_generation,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{Kind: v.kind.String()}
	switch v.kind {
	case KindU32:
		w.U32 = v.u32
	case KindBool:
		w.Bool = v.b
	case KindStr:
		w.Str = v.str
	case KindIPv4, KindIPv6:
		w.IP = v.ip.String()
	case KindIPv4Net, KindIPv6Net:
		w.Net = v.net.String()
	case KindNextHop4, KindNextHop6:
		w.NHSpecial = int(v.nh.Special)
		if v.nh.Addr != nil {
			w.NHAddr = v.nh.Addr.String()
		}
	case KindASPath:
		w.Path = v.path
	case KindCommunitySet, KindSet32:
		w.Members = v.Members()
	case KindFilterHandle:
		w.FHTarget = v.fh.Target
		w.FHGen = v.fh.Generation
	case KindNull:
		// no payload
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "u32":
		*v = U32(w.U32)
	case "bool":
		*v = Bool(w.Bool)
	case "str":
		*v = Str(w.Str)
	case "ipv4":
		*v = IPv4(net.ParseIP(w.IP))
	case "ipv6":
		*v = IPv6(net.ParseIP(w.IP))
	case "ipv4net", "ipv6net":
		n, err := parseNetString(w.Net)
		if err != nil {
			return err
		}
		if w.Kind == "ipv4net" {
			*v = IPv4Net(n)
		} else {
			*v = IPv6Net(n)
		}
	case "nexthop4", "nexthop6":
		nh := NextHop{Special: NextHopSpecial(w.NHSpecial)}
		if w.NHAddr != "" {
			nh.Addr = net.ParseIP(w.NHAddr)
		}
		if w.Kind == "nexthop4" {
			*v = NextHop4(nh)
		} else {
			*v = NextHop6(nh)
		}
	case "aspath":
		*v = ASPath(w.Path)
	case "community-set":
		*v = CommunitySet(w.Members)
	case "set32":
		*v = Set32(w.Members)
	case "filter-handle":
		*v = NewFilterHandle(w.FHTarget, w.FHGen)
	case "null", "":
		*v = Null()
	default:
		return fmt.Errorf("unknown wire value kind %q", w.Kind)
	}
	return nil
}

func parseNetString(s string) (Net, error) {
	ip, ipnet, err := net.ParseCIDR(s)
	if err != nil {
		return Net{}, fmt.Errorf("invalid net literal %q: %w", s, err)
	}
	ones, _ := ipnet.Mask.Size()
	return Net{Addr: ip, Prefix: ones}, nil
}
