package value

import (
	"encoding/json"
	"net"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"u32", U32(42)},
		{"bool", Bool(true)},
		{"str", Str("hello")},
		{"null", Null()},
		{"ipv4", IPv4(net.ParseIP("10.0.0.1").To4())},
		{"ipv6", IPv6(net.ParseIP("2001:db8::1"))},
		{"ipv4net", IPv4Net(Net{Addr: net.ParseIP("10.0.0.0").To4(), Prefix: 24})},
		{"nexthop4 special", NextHop4(NextHop{Special: NextHopSelf})},
		{"nexthop4 addr", NextHop4(NextHop{Addr: net.ParseIP("192.0.2.1").To4()})},
		{"aspath", ASPath([]uint32{65001, 65002, 65003})},
		{"communityset", CommunitySet([]uint32{65000<<16 | 100, 65000<<16 | 200})},
		{"set32", Set32([]uint32{1, 2, 3})},
		{"filterhandle", NewFilterHandle("bgp4-export", 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}

			var got Value
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}

			if got.Kind() != tt.v.Kind() {
				t.Fatalf("Kind mismatch: got %s, want %s", got.Kind(), tt.v.Kind())
			}
			if got.String() != tt.v.String() {
				t.Errorf("round-trip String() = %q, want %q", got.String(), tt.v.String())
			}
		})
	}
}

func TestValueJSONWireFormatCarriesTag(t *testing.T) {
	data, err := json.Marshal(U32(7))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if raw["kind"] != "u32" {
		t.Errorf("wire kind = %v, want %q", raw["kind"], "u32")
	}
}

func TestValueJSONUnknownKind(t *testing.T) {
	err := json.Unmarshal([]byte(`{"kind":"bogus"}`), &Value{})
	if err == nil {
		t.Error("expected error for unknown wire kind")
	}
}
