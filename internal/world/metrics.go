package world

import "expvar"

var metricExitDeniedTotal = expvar.NewInt("world_exit_denied_total")
