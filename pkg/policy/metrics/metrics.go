// Package metrics exposes the policy compiler's Prometheus instrumentation:
// commit/compile/link counters, a commit-duration histogram, and gauges for
// the modified-policies/modified-targets sets between commits. Grounded on
// wso2-api-platform's policy-engine metrics wrapper pattern, simplified to a
// single struct since this core has no enable/disable toggle of its own —
// callers who don't want metrics simply don't register the collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the compiler's collectors. The config engine updates all
// of them during a commit except TagAllocations, which nothing in this
// module increments.
type Metrics struct {
	Commits        prometheus.Counter
	Compiles       prometheus.Counter
	Links          prometheus.Counter
	TagAllocations prometheus.Counter
	CommitDuration prometheus.Histogram
	ModifiedPolicies prometheus.Gauge
	ModifiedTargets  prometheus.Gauge
}

// New constructs a fresh Metrics bundle. It does not register the
// collectors with any registry; call Register to do so.
func New() *Metrics {
	return &Metrics{
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routepolicy",
			Name:      "commits_total",
			Help:      "Total number of policy commits processed.",
		}),
		Compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routepolicy",
			Name:      "compiles_total",
			Help:      "Total number of policies (re)compiled.",
		}),
		Links: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routepolicy",
			Name:      "links_total",
			Help:      "Total number of per-target relink operations.",
		}),
		TagAllocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routepolicy",
			Name:      "tag_allocations_total",
			Help:      "Total number of redistribution tags allocated.",
		}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routepolicy",
			Name:      "commit_duration_seconds",
			Help:      "Wall-clock duration of a commit's compile+link pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		ModifiedPolicies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "routepolicy",
			Name:      "modified_policies",
			Help:      "Size of the modified-policies set awaiting the next commit.",
		}),
		ModifiedTargets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "routepolicy",
			Name:      "modified_targets",
			Help:      "Size of the modified-targets set awaiting the next commit.",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.Commits, m.Compiles, m.Links, m.TagAllocations,
		m.CommitDuration, m.ModifiedPolicies, m.ModifiedTargets,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
