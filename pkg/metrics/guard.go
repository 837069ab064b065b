package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GuardMetrics records access decisions made by the quota enforcer.
type GuardMetrics struct {
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	upgrades  *prometheus.CounterVec
}

// NewGuardMetrics registers the guard metrics on the provided registerer.
func NewGuardMetrics(reg prometheus.Registerer) *GuardMetrics {
	if reg == nil {
		return &GuardMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access decisions partitioned by outcome and tier.",
	}, []string{"outcome", "tier"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "access_check_duration_seconds",
		Help:    "Duration of access checks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tier"})
	upgrades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tier_upgrades_total",
		Help: "Tier upgrades applied from confirmed payments.",
	}, []string{"from_tier"})
	reg.MustRegister(decisions, duration, upgrades)
	return &GuardMetrics{
		decisions: decisions,
		duration:  duration,
		upgrades:  upgrades,
	}
}

// IncAllowed increments the allowed decision counter for the given tier.
func (g *GuardMetrics) IncAllowed(tier string) {
	if g == nil || g.decisions == nil {
		return
	}
	g.decisions.WithLabelValues("allowed", normalizeLabel(tier)).Inc()
}

// IncDenied increments the denied decision counter for the given reason and tier.
func (g *GuardMetrics) IncDenied(reason, tier string) {
	if g == nil || g.decisions == nil {
		return
	}
	g.decisions.WithLabelValues(normalizeLabel(reason), normalizeLabel(tier)).Inc()
}

// ObserveCheckDuration records how long an access check took.
func (g *GuardMetrics) ObserveCheckDuration(tier string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(tier)).Observe(duration.Seconds())
}

// IncUpgrade increments the upgrade counter for the tier the account left.
func (g *GuardMetrics) IncUpgrade(fromTier string) {
	if g == nil || g.upgrades == nil {
		return
	}
	g.upgrades.WithLabelValues(normalizeLabel(fromTier)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
