// Package metrics defines and registers all custom Prometheus metrics for the
// caseperl API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry through
// promauto when the package is first imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "caseperl"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts authentication-related requests by outcome.
// Labels:
//   - action: "register", "login", "refresh" or "logout"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication requests, by action and result.",
	},
	[]string{"action", "result"},
)

// RateLimitedTotal counts requests rejected by the per-IP rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
)

// ── Case metrics ──────────────────────────────────────────────────────────────

// CasesCreatedTotal counts newly created cases.
// Label:
//   - priority: "low", "medium" or "high"
var CasesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cases_created_total",
		Help:      "Total number of cases created, by priority.",
	},
	[]string{"priority"},
)

// CaseStatusChangesTotal counts status changes made through the status endpoint.
// Label:
//   - status: the status the case was moved to
var CaseStatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "case_status_changes_total",
		Help:      "Total number of case status changes, by resulting status.",
	},
	[]string{"status"},
)

// CasesDeletedTotal counts soft-deleted cases.
var CasesDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cases_deleted_total",
		Help:      "Total number of cases soft-deleted.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsRecordedTotal counts audit events persisted by the dispatcher.
// Label:
//   - kind: the event kind (e.g. "created", "status_changed")
var AuditEventsRecordedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_recorded_total",
		Help:      "Total number of case audit events successfully recorded.",
	},
	[]string{"kind"},
)

// AuditEventsErrorsTotal counts audit events that could not be recorded.
// Label:
//   - reason: "record_failed" or "dropped"
var AuditEventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_errors_total",
		Help:      "Total number of case audit events that failed or were dropped.",
	},
	[]string{"reason"},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
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

// AuditRecordDuration measures how long a single audit write takes.
// Label:
//   - kind: the event kind, or "error" on failure
var AuditRecordDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_record_duration_seconds",
		Help:      "Duration of audit event persistence from dequeue to write.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)
