package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/credia/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(StartScheduler),
)

func ProvideConfig(cfg config.Config) Config {
	sched := Config{
		RunInterval: time.Duration(cfg.SchedulerIntervalSec) * time.Second,
	}
	if jobs := strings.TrimSpace(cfg.SchedulerJobs); jobs != "" {
		for _, job := range strings.Split(jobs, ",") {
			if job = strings.TrimSpace(job); job != "" {
				sched.EnabledJobs = append(sched.EnabledJobs, job)
			}
		}
	}
	return sched.withDefaults()
}

func StartScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.SchedulerEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
