package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saudijob/jobboard/model"
)

// fakeServer is a minimal stand-in for the job board API: it serves a mutable
// listing and acknowledges views and deletes.
type fakeServer struct {
	mu   sync.Mutex
	jobs []model.Job
}

func (s *fakeServer) setJobs(jobs []model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = jobs
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		listing := model.JobListing{Items: append([]model.Job(nil), s.jobs...), Total: int64(len(s.jobs))}
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listing)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func TestAgentAlertLifecycle(t *testing.T) {
	assert := assert.New(t)

	server := &fakeServer{}
	testServer := httptest.NewServer(server.handler())
	defer testServer.Close()

	jobAgent := New(&Settings{
		APIBaseURL:        testServer.URL,
		PollInterval:      10 * time.Millisecond,
		ReconcileInterval: 15 * time.Millisecond,
	}, nil)
	assert.NoError(jobAgent.SetPreference([]string{"Electrician"}))

	// Publish a matching posting and start the loops.
	posting := model.Job{
		ID:          "7a5bb0e8-55a0-4cbe-9a4d-8c6dd340d46b",
		JobRole:     "Electrician",
		City:        "Riyadh",
		TimeCreated: time.Now(),
	}
	server.setJobs([]model.Job{posting})
	jobAgent.Start()
	defer jobAgent.Close()

	// The matching loop produces exactly one unread alert.
	assert.Eventually(func() bool { return jobAgent.UnreadCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(jobAgent.Alerts(), 1)

	// Marking it seen flips the unread count without removing the entry.
	assert.NoError(jobAgent.MarkAlertSeen(posting.ID))
	assert.Equal(0, jobAgent.UnreadCount())
	assert.Len(jobAgent.Alerts(), 1)

	// Once the posting disappears upstream, reconciliation evicts the entry.
	server.setJobs(nil)
	assert.Eventually(func() bool { return len(jobAgent.Alerts()) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestAgentRecordViewToleratesOfflineServer(t *testing.T) {
	assert := assert.New(t)

	// Point the agent at an address nothing listens on.
	jobAgent := New(&Settings{APIBaseURL: "http://127.0.0.1:1"}, nil)

	// The local viewed entry is stored even though the view report fails.
	job := model.Job{ID: "7a5bb0e8-55a0-4cbe-9a4d-8c6dd340d46b", JobRole: "Electrician"}
	assert.NoError(jobAgent.RecordView(context.Background(), job))
	assert.Len(jobAgent.Viewed(), 1)

	// Clearing the viewed feed is a purely local operation.
	assert.NoError(jobAgent.ClearViewed())
	assert.Len(jobAgent.Viewed(), 0)
}
