package config

import (
	"fmt"
	"strconv"

	"github.com/newtron-network/routepolicy/pkg/policy/value"
	"github.com/newtron-network/routepolicy/pkg/util"
)

// ParseSetElements parses a comma-separated list of typed elements into
// their u32 encoding, matching the wire format the config RPC layer uses
// for update_set/add_to_set/delete_from_set. kind selects the element
// grammar: plain u32 for value.KindSet32, "asn:value" community notation
// for value.KindCommunitySet.
func ParseSetElements(kind value.Kind, csv string) ([]uint32, error) {
	parts := util.SplitCommaSeparated(csv)
	out := make([]uint32, 0, len(parts))
	for _, p := range parts {
		switch kind {
		case value.KindSet32:
			n, err := strconv.ParseUint(p, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid set32 element %q: %w", p, err)
			}
			out = append(out, uint32(n))
		case value.KindCommunitySet:
			c, err := parseCommunity(p)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		default:
			return nil, fmt.Errorf("unsupported set element kind %s", kind)
		}
	}
	return out, nil
}

// parseCommunity parses "asn:value" BGP community notation into its packed
// 32-bit form (high 16 bits asn, low 16 bits value), or a plain decimal u32
// if no colon is present.
func parseCommunity(s string) (uint32, error) {
	var asn, val uint64
	n, err := fmt.Sscanf(s, "%d:%d", &asn, &val)
	if err == nil && n == 2 {
		if asn > 0xffff || val > 0xffff {
			return 0, fmt.Errorf("community %q out of range", s)
		}
		return uint32(asn)<<16 | uint32(val), nil
	}
	plain, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid community element %q", s)
	}
	return uint32(plain), nil
}
