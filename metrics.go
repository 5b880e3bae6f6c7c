// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import "expvar"

// clientMetrics record client activity counters.
type clientMetrics struct {
	msgRecv     expvar.Int
	msgSent     expvar.Int
	tunnelRecv  expvar.Int
	tunnelSent  expvar.Int
	pingSent    expvar.Int
	sessions    expvar.Int // number of handshakes completed
	sessionsErr expvar.Int // number of sessions ended by a failure
	reqOut      expvar.Int // number of correlated requests initiated
	reqErr      expvar.Int // number of correlated requests reporting an error
	reqDenied   expvar.Int // requests refused by the server
	reqTimeout  expvar.Int // requests that timed out
	reqPending  expvar.Int // requests waiting for a response

	emap *expvar.Map
}

var metrics = newClientMetrics()

// Metrics returns the metrics shared by all clients. The caller may add,
// update, and remove entries.
func (c *Client) Metrics() *expvar.Map { return metrics.emap }

func newClientMetrics() *clientMetrics {
	cm := &clientMetrics{emap: new(expvar.Map)}
	cm.emap.Set("messages_received", &cm.msgRecv)
	cm.emap.Set("messages_sent", &cm.msgSent)
	cm.emap.Set("tunnel_packets_received", &cm.tunnelRecv)
	cm.emap.Set("tunnel_packets_sent", &cm.tunnelSent)
	cm.emap.Set("pings_sent", &cm.pingSent)
	cm.emap.Set("sessions", &cm.sessions)
	cm.emap.Set("sessions_failed", &cm.sessionsErr)
	cm.emap.Set("requests_out", &cm.reqOut)
	cm.emap.Set("requests_failed", &cm.reqErr)
	cm.emap.Set("requests_denied", &cm.reqDenied)
	cm.emap.Set("requests_timed_out", &cm.reqTimeout)
	cm.emap.Set("requests_pending", &cm.reqPending)
	return cm
}
