package internaldefs

import (
	heavyride "github.com/teamqeematech/heavyride-go"
)

// CounterDef binds one metric counter to its exposition name and help text.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   heavyride.MetricID
	Name string
	Help string
}

// HistogramDef binds one metric histogram to its exposition name and help text.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   heavyride.MetricID
	Name string
	Help string
}

// CounterDefs enumerates every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: heavyride.MetricRequestDispatched, Name: "heavyride_request_dispatched_total", Help: "Requests placed on the wire."},
	{ID: heavyride.MetricRequestCompleted, Name: "heavyride_request_completed_total", Help: "Requests settled with a 2xx/3xx response."},
	{ID: heavyride.MetricRequestCanceled, Name: "heavyride_request_canceled_total", Help: "Requests settled as superseded or aborted."},
	{ID: heavyride.MetricRequestTimedOut, Name: "heavyride_request_timed_out_total", Help: "Requests that exceeded the dispatch ceiling."},
	{ID: heavyride.MetricRequestUnauthorized, Name: "heavyride_request_unauthorized_total", Help: "Requests answered with 401."},
	{ID: heavyride.MetricRequestFailed, Name: "heavyride_request_failed_total", Help: "Requests settled as transport faults or non-401 rejections."},
	{ID: heavyride.MetricLoginSuccess, Name: "heavyride_login_success_total", Help: "Committed logins."},
	{ID: heavyride.MetricLoginFailure, Name: "heavyride_login_failure_total", Help: "Rejected logins."},
	{ID: heavyride.MetricRegisterSuccess, Name: "heavyride_register_success_total", Help: "Committed registrations."},
	{ID: heavyride.MetricRegisterFailure, Name: "heavyride_register_failure_total", Help: "Rejected registrations."},
	{ID: heavyride.MetricLogout, Name: "heavyride_logout_total", Help: "Logout operations, including best-effort ones."},
	{ID: heavyride.MetricProfileRefreshed, Name: "heavyride_profile_refreshed_total", Help: "Successful profile fetches."},
	{ID: heavyride.MetricSessionRestored, Name: "heavyride_session_restored_total", Help: "Sessions restored from storage at startup."},
	{ID: heavyride.MetricStorageSelfHeal, Name: "heavyride_storage_self_heal_total", Help: "Corrupt storage entries purged on load."},
}

// HistogramDefs enumerates every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: heavyride.MetricRequestLatency, Name: "heavyride_request_latency_seconds", Help: "Request round-trip latency histogram."},
}

// HistogramBounds are the le labels of the latency histogram in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix gives a metric-name-safe suffix per bound.
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

// NormalizeBuckets pads or trims a raw snapshot slice to the fixed bucket
// count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
