// Package metrics defines the custom Prometheus metrics of the admin API. It
// is the single source of truth for metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry through
// promauto on package init; echoprometheus serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "admin"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid" (bad credentials), "inactive" or "throttled"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenVerificationsTotal counts access token verifications.
// Label:
//   - result: "valid", "invalid", "malformed", "revoked" or "denylist_error"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of access token verifications, by result.",
	},
	[]string{"result"},
)

// SessionsSweptTotal counts sessions closed by the periodic expiry sweep.
var SessionsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Total number of expired sessions deactivated by the sweeper.",
	},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthzDenialsTotal counts requests refused by a guard.
// Label:
//   - guard: guard name (e.g. "require_permission", "require_brand_access")
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of requests denied by an authorization guard.",
	},
	[]string{"guard"},
)

// QuotaChecksTotal counts company resource-limit checks.
// Labels:
//   - resource: "brands", "agents", "users" or "knowledge_items"
//   - result: "within" or "at_limit"
var QuotaChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_checks_total",
		Help:      "Total number of company resource-limit checks, by resource and result.",
	},
	[]string{"resource", "result"},
)

// ── Audit pipeline metrics ────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsTotal counts audit events by outcome.
// Label:
//   - result: "stored", "failed" or "dropped" (queue full)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events handled by the dispatcher, by result.",
	},
	[]string{"result"},
)

// AuditWriteDuration measures how long persisting one audit event takes.
var AuditWriteDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_write_duration_seconds",
		Help:      "Duration of a single audit event write.",
		Buckets:   prometheus.DefBuckets,
	},
)
