package tree

import "expvar"

var (
	metricSavesTotal      = expvar.NewInt("tree_saves_total")
	metricSaveErrorsTotal = expvar.NewInt("tree_save_errors_total")
)
