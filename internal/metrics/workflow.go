package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Workflow records outcomes and latency of service workflows.
type Workflow struct {
	total     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rollbacks *prometheus.CounterVec
}

func NewWorkflow() *Workflow {
	return NewWorkflowWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWorkflowWithRegisterer(registerer prometheus.Registerer) *Workflow {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Workflow{
		total: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookstore_workflow_total",
			Help: "Total number of workflow executions by outcome",
		}, []string{"workflow", "outcome"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "bookstore_workflow_duration_seconds",
			Help:    "Duration of workflow executions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"workflow"}),
		rollbacks: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookstore_transaction_rollbacks_total",
			Help: "Total number of transactions rolled back by workflow",
		}, []string{"workflow"}),
	}
}

// Observe is meant to be deferred with the start time and the named error result.
func (m *Workflow) Observe(workflow string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.total.WithLabelValues(workflow, outcome).Inc()
	m.duration.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
}

func (m *Workflow) Rollback(workflow string) {
	if m == nil {
		return
	}
	m.rollbacks.WithLabelValues(workflow).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
