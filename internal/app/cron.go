package app

import (
	"context"
	"time"

	pkgcron "github.com/smarttraffic/core/internal/pkg/cron"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	a.sched.Register(pkgcron.Job{
		Name:        "reward_period_check",
		Description: "Settle the leaderboard period once it elapses",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			return a.rewardsSvc.CheckAndRun(ctx)
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_tasks",
		Description: "Delete terminal background tasks older than a week",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -7).UnixMilli()
			return a.taskSvc.DeleteCompleted(ctx, cutoff)
		},
	})
}
