package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tasksFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "prepagent_tasks_finished_total",
	Help: "Plan generation tasks reaching a terminal state.",
}, []string{"state"})
