package codegen

import (
	"sort"
	"sync"

	"github.com/newtron-network/routepolicy/pkg/policy"
)

// TagOverflowError is fatal: the 32-bit tag counter has been exhausted.
type TagOverflowError struct{}

func (e *TagOverflowError) Error() string {
	return "redistribution tag counter overflow"
}

func (e *TagOverflowError) Unwrap() error { return policy.ErrTagOverflow }

// TagAllocator allocates redistribution tags monotonically and maintains
// the protocol -> set-of-tags map the filter manager consults.
type TagAllocator struct {
	mu      sync.Mutex
	next    uint64 // wider than uint32 so we can detect overflow cleanly
	byProto map[string]map[uint32]struct{}
}

func NewTagAllocator() *TagAllocator {
	return &TagAllocator{byProto: make(map[string]map[uint32]struct{})}
}

// Allocate mints a fresh tag for protocol, failing fatally on 32-bit
// counter overflow.
func (a *TagAllocator) Allocate(protocol string) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next > 0xffffffff {
		return 0, &TagOverflowError{}
	}
	tag := uint32(a.next)
	a.next++
	if a.byProto[protocol] == nil {
		a.byProto[protocol] = make(map[uint32]struct{})
	}
	a.byProto[protocol][tag] = struct{}{}
	return tag, nil
}

// TagsFor returns the sorted tag set owned by protocol.
func (a *TagAllocator) TagsFor(protocol string) []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	tags := a.byProto[protocol]
	out := make([]uint32, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProtocolTagMap returns a snapshot of every protocol's tag set, each list
// sorted. The commit pipeline does not pass it to the FilterManager.
func (a *TagAllocator) ProtocolTagMap() map[string][]uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]uint32, len(a.byProto))
	for proto, tags := range a.byProto {
		list := make([]uint32, 0, len(tags))
		for t := range tags {
			list = append(list, t)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out[proto] = list
	}
	return out
}

// Tags are never reclaimed: a deleted export statement's tag stays retired
// rather than being returned to the pool, avoiding stale-tag reuse across
// commits.
