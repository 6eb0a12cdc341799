package client

import "github.com/VictoriaMetrics/metrics"

// Runtime counters of the client connection runtime. Exposed through the
// default VictoriaMetrics registry.
var (
	metricsDials             = metrics.GetOrCreateCounter(`kanal_client_dials_total`)
	metricsDialFailures      = metrics.GetOrCreateCounter(`kanal_client_dial_failures_total`)
	metricsAcquires          = metrics.GetOrCreateCounter(`kanal_client_pool_acquires_total`)
	metricsPoolExhausted     = metrics.GetOrCreateCounter(`kanal_client_pool_exhausted_total`)
	metricsEvictions         = metrics.GetOrCreateCounter(`kanal_client_pool_evictions_total`)
	metricsRequestsSent      = metrics.GetOrCreateCounter(`kanal_client_requests_sent_total`)
	metricsRequestTimeouts   = metrics.GetOrCreateCounter(`kanal_client_request_timeouts_total`)
	metricsReconnects        = metrics.GetOrCreateCounter(`kanal_client_reconnects_total`)
	metricsReconnectFailures = metrics.GetOrCreateCounter(`kanal_client_reconnect_failures_total`)
	metricsHeartbeatFailures = metrics.GetOrCreateCounter(`kanal_client_heartbeat_failures_total`)
)
