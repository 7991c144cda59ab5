package scheduler

import "expvar"

var (
	metricTicksTotal      = expvar.NewInt("scheduler_ticks_total")
	metricTaskPanicsTotal = expvar.NewInt("scheduler_task_panics_total")
)
