package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/routepolicy/pkg/audit"
	"github.com/newtron-network/routepolicy/pkg/auth"
	"github.com/newtron-network/routepolicy/pkg/policy/config"
	"github.com/newtron-network/routepolicy/pkg/policy/filtermgr"
	"github.com/newtron-network/routepolicy/pkg/settings"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Replay the configuration bundle and relink modified targets",
	Long: `Commit replays every delta in the configuration bundle into a
fresh Engine, then runs the compile/link/hand-off pipeline synchronously:
every policy touched by this replay is semantically checked, every target
it feeds is relinked, and the resulting images are installed into the
configured FilterManager (in-memory or Redis, per policyd.yaml's
filter_backend).

Because each CLI invocation starts a fresh process, a full bundle replay
on every commit is what stands in for the live Engine a long-running
policy daemon would otherwise keep around between deltas.

Examples:
  policyd commit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		authCtx := auth.NewContext()
		if err := checkPermission(auth.PermCommit, authCtx, "commit"); err != nil {
			return err
		}

		b, err := loadBundle()
		if err != nil {
			return err
		}

		filter, err := newFilterManager()
		if err != nil {
			return fmt.Errorf("initializing filter manager: %w", err)
		}
		if closer, ok := filter.(interface{ Close() error }); ok {
			defer closer.Close()
		}

		e := config.New(filter)
		start := time.Now()
		if err := b.Apply(e); err != nil {
			audit.Log(audit.NewEvent(app.permChecker.CurrentUser(), "", "commit").
				WithError(err).WithDuration(time.Since(start)))
			return fmt.Errorf("applying bundle: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.CommitNow(ctx); err != nil {
			audit.Log(audit.NewEvent(app.permChecker.CurrentUser(), "", "commit").
				WithError(err).WithDuration(time.Since(start)))
			return fmt.Errorf("commit failed: %w", err)
		}

		audit.Log(audit.NewEvent(app.permChecker.CurrentUser(), "", "commit").
			WithSuccess().WithDuration(time.Since(start)))
		fmt.Println(green(fmt.Sprintf("Commit complete in %s.", time.Since(start))))
		return nil
	},
}

// newFilterManager builds the FilterManager the commit pipeline hands
// freshly linked images to, chosen by policyd.yaml's filter_backend.
func newFilterManager() (filtermgr.FilterManager, error) {
	switch app.settings.GetFilterBackend() {
	case settings.BackendRedis:
		return filtermgr.NewRedisFilterManager(app.settings.RedisAddr), nil
	default:
		return filtermgr.NewMemoryFilterManager(), nil
	}
}
