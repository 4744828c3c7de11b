// Package observability holds the logger factory, the request logging
// middleware, and the Prometheus metrics for the support desk core.
// It is the single source of truth for metric names, labels, and help
// strings.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "supportdesk"

// TicketsCreatedTotal counts created tickets by category.
var TicketsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_created_total",
		Help:      "Total number of tickets created, by category.",
	},
	[]string{"category"},
)

// TicketStatusChangesTotal counts status transitions. The trigger
// label separates explicit staff updates ("update") from
// conversational side-effect flips ("comment").
var TicketStatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticket_status_changes_total",
		Help:      "Total number of ticket status transitions, by trigger.",
	},
	[]string{"trigger", "new_status"},
)

// AuditCommentsTotal counts synthesized audit comments by changed field.
var AuditCommentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_comments_total",
		Help:      "Total number of internal audit comments appended, by field.",
	},
	[]string{"field"},
)

// PermissionDeniedTotal counts guard rejections by capability token.
var PermissionDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_denied_total",
		Help:      "Total number of requests rejected by the permission guard.",
	},
	[]string{"permission"},
)

// HTTPRequestsTotal counts handled HTTP requests.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, path, and status.",
	},
	[]string{"method", "path", "status"},
)

// HTTPRequestDuration measures request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP request handling.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)
