package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)
	OAuthLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "oauth_logins_total", Help: "Completed OAuth callbacks"},
		[]string{"provider", "result"},
	)
	PickupsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pickups_scheduled_total", Help: "Pickups created"},
	)
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pickup_notifications_total", Help: "Pickup notification outcomes"},
		[]string{"result"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, OAuthLogins, PickupsScheduled, NotificationsSent)
}
