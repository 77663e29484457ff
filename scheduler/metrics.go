package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var itemsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_scheduler_items_added",
	Help: "Number of work items added to the scheduler",
}, []string{"ident"})

var itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_scheduler_items_processed",
	Help: "Number of work items processed by the scheduler",
}, []string{"ident"})

var workersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "warden_scheduler_workers_active",
	Help: "Number of workers running in the scheduler",
}, []string{"ident"})
