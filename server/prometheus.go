package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusWSConnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_total",
	Help: "Total number of opened websocket connections",
})

var prometheusWSConnActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ws_conn_active",
	Help: "Total number of active websocket connections",
})

var prometheusWSConnErrTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_err_total",
	Help: "Total number of errored out websocket connections",
})

var prometheusWSConnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ws_conn_duration_seconds",
	Help: "Duration of websocket connections",
})

var prometheusMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "signaling_messages_total",
	Help: "Total number of routed signaling messages by type",
}, []string{"type"})

var prometheusMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signaling_malformed_total",
	Help: "Total number of malformed inbound messages",
})

var prometheusUnicastDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signaling_unicast_dropped_total",
	Help: "Total number of unicast messages dropped because the target was not registered",
})

var prometheusBroadcastErrTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signaling_broadcast_err_total",
	Help: "Total number of failed sends during room broadcasts",
})

var prometheusJoinTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signaling_join_total",
	Help: "Total number of processed join messages",
})

var prometheusLeaveTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signaling_leave_total",
	Help: "Total number of processed leave messages, explicit or synthesized",
})
