package internaldefs

import (
	authcoord "github.com/veldtma/authcoord"
)

// CounterDef names one coordinator counter for export.
type CounterDef struct {
	ID   authcoord.MetricID
	Name string
	Help string
}

// HistogramDef names one coordinator histogram for export.
type HistogramDef struct {
	ID   authcoord.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter naming table. Both exporters read it so
// metric names never diverge between backends.
var CounterDefs = []CounterDef{
	{ID: authcoord.MetricLoginSuccess, Name: "authcoord_login_success_total", Help: "Successful password logins."},
	{ID: authcoord.MetricLoginFailure, Name: "authcoord_login_failure_total", Help: "Rejected or failed logins."},
	{ID: authcoord.MetricRegisterSuccess, Name: "authcoord_register_success_total", Help: "Successful registrations."},
	{ID: authcoord.MetricRegisterFailure, Name: "authcoord_register_failure_total", Help: "Rejected or failed registrations."},
	{ID: authcoord.MetricLogout, Name: "authcoord_logout_total", Help: "Local logouts."},
	{ID: authcoord.MetricLogoutNotifyFailed, Name: "authcoord_logout_notify_failed_total", Help: "Logouts whose server notification failed."},
	{ID: authcoord.MetricRefreshSuccess, Name: "authcoord_refresh_success_total", Help: "Successful session refreshes."},
	{ID: authcoord.MetricRefreshRejected, Name: "authcoord_refresh_rejected_total", Help: "Refreshes authoritatively refused by the server."},
	{ID: authcoord.MetricRefreshTransient, Name: "authcoord_refresh_transient_total", Help: "Refresh attempts failed without a verdict."},
	{ID: authcoord.MetricValidateAccepted, Name: "authcoord_validate_accepted_total", Help: "Server confirmations of the session."},
	{ID: authcoord.MetricValidateRejected, Name: "authcoord_validate_rejected_total", Help: "Authoritative session invalidations."},
	{ID: authcoord.MetricValidateTransient, Name: "authcoord_validate_transient_total", Help: "Validation attempts with no verdict."},
	{ID: authcoord.MetricLinkSuccess, Name: "authcoord_link_success_total", Help: "Successful account links."},
	{ID: authcoord.MetricLinkFailure, Name: "authcoord_link_failure_total", Help: "Rejected or failed account links."},
	{ID: authcoord.MetricHydrationRestored, Name: "authcoord_hydration_restored_total", Help: "Startups restoring a valid persisted session."},
	{ID: authcoord.MetricHydrationCorrupt, Name: "authcoord_hydration_corrupt_total", Help: "Startups discarding a corrupt persisted record."},
	{ID: authcoord.MetricCSRFRotations, Name: "authcoord_csrf_rotations_total", Help: "Adopted CSRF token rotations."},
	{ID: authcoord.MetricCSRFStaleRejected, Name: "authcoord_csrf_stale_rejected_total", Help: "Remote CSRF rotations discarded as stale."},
	{ID: authcoord.MetricBusPublished, Name: "authcoord_bus_published_total", Help: "Broadcast messages sent to sibling instances."},
	{ID: authcoord.MetricBusApplied, Name: "authcoord_bus_applied_total", Help: "Remote messages applied to local state."},
	{ID: authcoord.MetricBusMalformed, Name: "authcoord_bus_malformed_total", Help: "Remote messages dropped as undecodable."},
	{ID: authcoord.MetricStaleResultDiscarded, Name: "authcoord_stale_result_discarded_total", Help: "In-flight operation results discarded as stale."},
}

// HistogramDefs is the shared histogram naming table.
var HistogramDefs = []HistogramDef{
	{ID: authcoord.MetricValidateLatency, Name: "authcoord_validate_latency_seconds", Help: "Server validation latency histogram."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds, matching the
// core recorder's fixed buckets. The final bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for backends without native
// histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form both
// export formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
