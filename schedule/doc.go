// Package schedule provides a small, cancellable timer abstraction.
//
// The queue manager schedules a timeout for every pending entry and must be
// able to cancel it when the entry is promoted or removed. Wrapping the timer
// source in an interface keeps the timeout mechanism injectable: production
// code uses OS timers via TimerScheduler, tests use ManualScheduler and
// advance time explicitly.
//
//	sched := schedule.NewTimerScheduler()
//	handle := sched.Schedule(100*time.Millisecond, func() {
//	    // entry timed out
//	})
//	if handle.Cancel() {
//	    // callback will never run
//	}
package schedule
