package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prepagent_messages_total",
		Help: "Processed inbound messages by resulting conversation phase.",
	}, []string{"phase"})

	tasksCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prepagent_tasks_created_total",
		Help: "Asynchronous plan generation tasks accepted, by kind.",
	}, []string{"kind"})

	conversationsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prepagent_conversations_swept_total",
		Help: "Idle conversations removed by the sweeper.",
	})
)
