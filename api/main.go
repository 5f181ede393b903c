// Package api implements the job board HTTP surface: the record listing and
// write endpoints and push registration. Record writes are gated by an
// owner-email match supplied by the caller; this is an ownership check, not
// cryptographic authentication.
package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/saudijob/jobboard/dispatch"
)

var log = logrus.WithFields(logrus.Fields{"package": "api"})

// maxListingLimit caps the page size accepted by the listing endpoints.
const maxListingLimit = 50

// API holds the handlers for the job board endpoints.
type API struct {
	db         *sql.DB
	dispatcher *dispatch.Dispatcher
}

// New creates the API over a database and a push dispatcher.
func New(database *sql.DB, dispatcher *dispatch.Dispatcher) *API {
	return &API{db: database, dispatcher: dispatcher}
}

// Router builds the HTTP router for the API.
func (a *API) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", a.Status).Methods(http.MethodGet)
	router.HandleFunc("/jobs", a.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/jobs", a.CreateJob).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}", a.UpdateJob).Methods(http.MethodPut)
	router.HandleFunc("/jobs/{id}", a.DeleteJob).Methods(http.MethodDelete)
	router.HandleFunc("/jobs/{id}/view", a.IncrementView).Methods(http.MethodPost)
	router.HandleFunc("/my-posts", a.ListMyPosts).Methods(http.MethodGet)
	router.HandleFunc("/push/register", a.RegisterPush).Methods(http.MethodPost)
	router.HandleFunc("/push/count", a.CountPushRegistrations).Methods(http.MethodGet)
	return router
}

// Status reports that the service is running.
func (a *API) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "job board API running",
	})
}
