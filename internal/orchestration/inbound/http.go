package inbound

import (
	"net/http"

	"github.com/shandysiswandi/notifyflow/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc, serviceName string) {
	end := &HTTPEndpoint{uc: uc, serviceName: serviceName}

	r.GET("/api/v1/orchestration/cron", end.CronStatus)
	r.POST("/api/v1/orchestration/cron", end.ProcessEvents)
	r.POST("/api/v1/orchestration/executions/retry", end.RetryExecutions)
	r.Public(http.MethodGet, "/api/v1/orchestration/cron")
	r.Public(http.MethodPost, "/api/v1/orchestration/cron")
	r.Public(http.MethodPost, "/api/v1/orchestration/executions/retry")

	r.POST("/api/v1/orchestration/events", end.IngestEvent)
	r.GET("/api/v1/orchestration/events/:id", end.GetEvent)

	r.GET("/api/v1/orchestration/rules", end.ListRules)
	r.POST("/api/v1/orchestration/rules", end.CreateRule)
	r.GET("/api/v1/orchestration/rules/:id", end.GetRule)
	r.PATCH("/api/v1/orchestration/rules/:id", end.UpdateRule)
	r.DELETE("/api/v1/orchestration/rules/:id", end.DeleteRule)
	r.POST("/api/v1/orchestration/rules/:id/test", end.TestRule)

	r.GET("/api/v1/orchestration/executions", end.ListExecutions)
	r.GET("/api/v1/orchestration/stats", end.Stats)

	r.GET("/api/v1/notifications", end.ListInbox)
	r.PATCH("/api/v1/notifications/:id/read", end.MarkInboxRead)
	r.GETRaw("/api/v1/notifications/stream", http.HandlerFunc(end.StreamNotifications))
}
