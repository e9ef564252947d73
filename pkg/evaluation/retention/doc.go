// Package retention deletes old evaluation runs.
//
// A Pruner removes terminal runs (done or error) whose completion time is
// older than the configured number of days. Queued and running runs are
// never touched, however old. A Scheduler runs the pruner on a cron
// schedule:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//		RetentionDays: 30,
//		PruneSchedule: "0 3 * * *",
//	})
//	if err := pruner.Scheduler().Start(ctx); err != nil {
//		return err
//	}
//	defer pruner.Scheduler().Stop()
package retention
