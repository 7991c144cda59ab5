package jail

import "expvar"

var (
	metricImprisonTotal              = expvar.NewInt("jail_imprison_total")
	metricReleaseTotal               = expvar.NewInt("jail_release_total")
	metricLateReleaseRegisteredTotal = expvar.NewInt("jail_late_release_registered_total")
	metricLateReleaseCompletedTotal  = expvar.NewInt("jail_late_release_completed_total")
	metricWardenPassTotal            = expvar.NewInt("jail_warden_pass_total")
	metricWardenUnresolvedTotal      = expvar.NewInt("jail_warden_unresolved_total")
	metricWarningsSentTotal          = expvar.NewInt("jail_warnings_sent_total")
	metricExitDeniedTotal            = expvar.NewInt("jail_exit_denied_total")
	metricJournalDroppedTotal        = expvar.NewInt("jail_journal_dropped_total")
	metricSessionsActive             = expvar.NewInt("jail_sessions_active")
	metricSessionsUnresolved         = expvar.NewInt("jail_sessions_unresolved")
)
