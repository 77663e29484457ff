package cleaner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sweepCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_cleaner_sweeps",
	Help: "Number of auto-clean sweep passes",
})

var messagesDeletedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_cleaner_messages_deleted",
	Help: "Number of messages deleted by the auto-cleaner",
})

var pairErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_cleaner_pair_errors",
	Help: "Number of per-channel clean failures",
})

var delayGrantedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_cleaner_delays_granted",
	Help: "Number of granted auto-clean delay requests",
})
