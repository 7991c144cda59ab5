package httptransport

import "expvar"

var (
	metricAdminRequestsTotal     = expvar.NewInt("admin_requests_total")
	metricAdminErrorsTotal       = expvar.NewInt("admin_errors_total")
	metricAdminUnauthorizedTotal = expvar.NewInt("admin_unauthorized_total")

	metricImprisonRequestsTotal = expvar.NewInt("admin_imprison_requests_total")
	metricReleaseRequestsTotal  = expvar.NewInt("admin_release_requests_total")
)
