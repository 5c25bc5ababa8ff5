// Package rest wires the HTTP surface: routing, middleware, and the
// REST handlers.
package rest

import (
	"net/http"
	"time"

	"crm-backend/interfaces/http/rest/handlers"
	"crm-backend/interfaces/http/rest/middleware"
	"crm-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterDeps collects everything the router mounts
type RouterDeps struct {
	Reminders     *handlers.ReminderHandler
	Comments      *handlers.CommentHandler
	Leads         *handlers.LeadHandler
	Notifications *handlers.NotificationHandler
	Auth          *middleware.Authenticator
	Logger        *zap.Logger
}

// NewRouter builds the chi router with the full middleware stack
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(deps.Auth.Authenticate)

		api.Route("/reminders", func(rr chi.Router) {
			rr.Post("/", deps.Reminders.CreateReminder)
			rr.Get("/", deps.Reminders.ListReminders)
			rr.Get("/latest-overdue", deps.Reminders.LatestOverdue)
			rr.Delete("/{reminderID}", deps.Reminders.DeleteReminder)
			rr.Post("/{reminderID}/notify", deps.Reminders.NotifyReminder)
		})

		api.Route("/comments", func(cr chi.Router) {
			cr.Post("/", deps.Comments.CreateComment)
			cr.Get("/", deps.Comments.ListComments)
		})

		api.Route("/leads", func(lr chi.Router) {
			lr.Post("/", deps.Leads.CreateLead)
			lr.Post("/delayed-map", deps.Leads.DelayedMap)
			lr.Get("/{leadID}", deps.Leads.GetLead)
		})

		api.Post("/reconcile", deps.Leads.Reconcile)

		api.Route("/notifications", func(nr chi.Router) {
			nr.Get("/", deps.Notifications.ListNotifications)
			nr.Post("/{notificationID}/republish", deps.Notifications.Republish)
		})
	})

	return r
}
