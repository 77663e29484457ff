package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiRequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_platform_api_requests_total",
	Help: "Number of REST API requests sent",
}, []string{"method"})

var apiErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_platform_api_errors_total",
	Help: "Number of REST API requests which failed",
}, []string{"method"})

var gatewayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_platform_gateway_events_total",
	Help: "Number of gateway dispatch events received",
}, []string{"type"})

var gatewayReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_platform_gateway_reconnects_total",
	Help: "Number of gateway reconnect attempts",
})
