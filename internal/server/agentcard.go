package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// agentCard is the public service descriptor served at the well-known
// path so clients can discover capabilities before authenticating.
var agentCard = map[string]interface{}{
	"name":        "Interview Preparation Coach",
	"description": "Conversational agent that builds personalized interview preparation plans with asynchronous research and webhook delivery.",
	"version":     "1.0.0",
	"capabilities": map[string]interface{}{
		"pushNotifications": true,
		"streaming":         false,
	},
	"defaultInputModes":  []string{"text"},
	"defaultOutputModes": []string{"text"},
	"skills": []map[string]interface{}{
		{
			"id":          "interview_prep_planning",
			"name":        "Interview preparation planning",
			"description": "Collects domains, skill level and learning preference over a short dialogue, then generates a study plan.",
			"tags":        []string{"interview", "planning", "coaching"},
		},
	},
}

func registerAgentCard(e *echo.Echo) {
	e.GET("/.well-known/agent.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, agentCard)
	})
}
