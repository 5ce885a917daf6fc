package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/recovery"
)

// Handlers groups the route handlers the router mounts. Nil optional
// handlers (search) leave their routes unregistered.
type Handlers struct {
	Users    *UserHandler
	Journals *JournalHandler
	Chat     *ChatHandler
	Reports  *ReportHandler
	Search   *SearchHandler
	Health   *HealthHandler
}

// NewRouter builds the API router with the recovery middleware applied.
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(recovery.Middleware)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.Health.CheckHealth).Methods(http.MethodGet)

	api.HandleFunc("/users", h.Users.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}", h.Users.GetUser).Methods(http.MethodGet)

	api.HandleFunc("/users/{userId}/journals", h.Journals.CreateJournal).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/journals", h.Journals.ListJournals).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/journals/{journalId}", h.Journals.GetJournal).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/journals/{journalId}", h.Journals.DeleteJournal).Methods(http.MethodDelete)

	api.HandleFunc("/users/{userId}/chat", h.Chat.HandleChat).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/chat/stream", h.Chat.HandleChatStream).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/sessions", h.Chat.ListSessions).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/sessions/{sessionId}/messages", h.Chat.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/sessions/{sessionId}", h.Chat.DeleteSession).Methods(http.MethodDelete)

	api.HandleFunc("/users/{userId}/reports", h.Reports.GenerateReport).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/reports", h.Reports.ListReports).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/reports/latest", h.Reports.LatestReport).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/reports/{reportId}", h.Reports.GetReport).Methods(http.MethodGet)

	if h.Search != nil {
		api.HandleFunc("/users/{userId}/search", h.Search.HandleSearch).Methods(http.MethodPost)
	}

	return r
}
