// Package metrics defines and registers all custom Prometheus metrics for the
// certificate registry. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "certreg"

// ── Certificate metrics ──────────────────────────────────────────────────────

// CertificatesIssuedTotal counts successfully issued certificates.
var CertificatesIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "certificates_issued_total",
		Help:      "Total number of certificates issued successfully.",
	},
)

// IssuanceConflictsTotal counts issuance attempts rejected because the
// artifact fingerprint already existed.
var IssuanceConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issuance_conflicts_total",
		Help:      "Total number of issuance attempts rejected as duplicate fingerprints.",
	},
)

// RevocationsTotal counts successful revocations.
var RevocationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revocations_total",
		Help:      "Total number of certificates revoked.",
	},
)

// VerificationsTotal counts verification requests by outcome.
// Label:
//   - verdict: "valid", "revoked", "expired", or "not_found"
var VerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Total number of verification requests, labelled by verdict.",
	},
	[]string{"verdict"},
)

// ── Audit metrics ────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit entries waiting in each
// dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit entries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditWriteFailuresTotal counts audit entries that failed to persist.
// Audit writes are best-effort, so failures are counted rather than surfaced.
var AuditWriteFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Total number of audit entries that could not be persisted.",
	},
)

// AuditDroppedTotal counts audit entries dropped because a worker channel was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit entries dropped due to dispatcher backpressure.",
	},
)
