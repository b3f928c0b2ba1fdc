package filtermgr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/routepolicy/pkg/policy/codegen"
	"github.com/newtron-network/routepolicy/pkg/util"
)

// RedisFilterManager publishes linked code images to a per-target Redis
// pub/sub channel, for deployments where the compiler and the protocol
// filter processes run as separate binaries. Grounded on the teacher's
// go-redis usage for device-state access (pkg/newtron/device/sonic); here
// go-redis backs a hand-off transport instead of a state cache.
type RedisFilterManager struct {
	client *redis.Client
	// local caches the last installed image per target locally so
	// Current() doesn't require a round trip or a Redis-side read path.
	local *MemoryFilterManager
}

func NewRedisFilterManager(addr string) *RedisFilterManager {
	return &RedisFilterManager{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		local:  NewMemoryFilterManager(),
	}
}

func targetChannel(t codegen.Target) string {
	return fmt.Sprintf("policy-filter:%s:%s", t.Protocol, t.Kind.String())
}

func (r *RedisFilterManager) Install(ctx context.Context, image codegen.Image) error {
	payload, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("encoding filter image for %s: %w", image.Target, err)
	}
	if err := r.client.Publish(ctx, targetChannel(image.Target), payload).Err(); err != nil {
		return fmt.Errorf("publishing filter image for %s: %w", image.Target, err)
	}
	if err := r.local.Install(ctx, image); err != nil {
		return err
	}
	util.WithFields(map[string]interface{}{
		"component": "filtermgr",
		"backend":   "redis",
		"target":    image.Target.String(),
		"gen":       image.Generation,
	}).Info("published filter image")
	return nil
}

func (r *RedisFilterManager) Current(target codegen.Target) (codegen.Image, bool) {
	return r.local.Current(target)
}

// Close releases the underlying Redis client.
func (r *RedisFilterManager) Close() error {
	return r.client.Close()
}
