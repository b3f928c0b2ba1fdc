// Package filtermgr implements the FilterManager collaborator: the
// hand-off point between the compiler and the live protocol filters.
// The core never pushes code directly into a protocol's data path; it
// hands a FilterManager one linked image per affected target after every
// commit and the FilterManager owns delivery from there.
package filtermgr

import (
	"context"
	"sync"

	"github.com/newtron-network/routepolicy/pkg/policy/codegen"
	"github.com/newtron-network/routepolicy/pkg/util"
)

// FilterManager receives fully linked per-target code images after a
// commit. Install must be safe to call concurrently for distinct targets
// (the core itself is single-threaded, but a FilterManager may fan work
// out to protocol processes on its own schedule).
type FilterManager interface {
	Install(ctx context.Context, image codegen.Image) error
	// Current returns the most recently installed image for target, if any.
	Current(target codegen.Target) (codegen.Image, bool)
}

// MemoryFilterManager keeps the latest image per target in memory. It is
// the default backend (SPEC's `memory` filter-manager-backend setting) and
// the implementation used by tests and `policyd vm eval`.
type MemoryFilterManager struct {
	mu     sync.RWMutex
	images map[codegen.Target]codegen.Image
}

func NewMemoryFilterManager() *MemoryFilterManager {
	return &MemoryFilterManager{images: make(map[codegen.Target]codegen.Image)}
}

func (m *MemoryFilterManager) Install(_ context.Context, image codegen.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[image.Target] = image
	util.WithFields(map[string]interface{}{
		"component": "filtermgr",
		"target":    image.Target.String(),
		"gen":       image.Generation,
	}).Debug("installed filter image")
	return nil
}

func (m *MemoryFilterManager) Current(target codegen.Target) (codegen.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[target]
	return img, ok
}
