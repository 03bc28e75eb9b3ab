package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	jobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_jobs_created_total",
			Help: "Jobs inserted into the ledger, per type.",
		},
		[]string{"type"},
	)

	jobTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_job_transitions_total",
			Help: "Ledger status transitions, per type and target status.",
		},
		[]string{"type", "status"},
	)

	dispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_dispatch_failures_total",
			Help: "Fire-and-forget worker calls that did not get a 2xx, per type.",
		},
		[]string{"type"},
	)

	ordersSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_purchase_orders_synced_total",
			Help: "Purchase orders persisted by the result synchronizer.",
		},
	)
)

// MustRegister registers all orchestrator collectors exactly once.
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(jobsCreated, jobTransitions, dispatchFailures, ordersSynced)
	})
}

func JobCreated(jobType string) { jobsCreated.WithLabelValues(jobType).Inc() }

func JobTransition(jobType, status string) { jobTransitions.WithLabelValues(jobType, status).Inc() }

func DispatchFailed(jobType string) { dispatchFailures.WithLabelValues(jobType).Inc() }

func OrdersSynced(n int) { ordersSynced.Add(float64(n)) }
