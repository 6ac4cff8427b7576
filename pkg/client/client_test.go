package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/mgriffes/jobforge/api/v1"
	"github.com/mgriffes/jobforge/pkg/client"
	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newServer := func(handler http.HandlerFunc) *httptest.Server {
		ts := httptest.NewServer(handler)
		DeferCleanup(ts.Close)
		return ts
	}

	// Given a daemon that fails twice with 500 before recovering
	// When the stats are requested
	// Then the client should retry until the request succeeds
	It("should retry transient server errors", func() {
		// Arrange
		var hits atomic.Int32
		ts := newServer(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) <= 2 {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v1.SchedulerStats{Workers: 4})
		})
		c := client.New(ts.URL, client.WithRetryTimeout(10*time.Second))

		// Act
		stats, err := c.SchedulerStats(ctx)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Workers).To(Equal(4))
		Expect(hits.Load()).To(Equal(int32(3)))
	})

	// Given a run id the daemon does not know
	// When the run is fetched
	// Then the client should fail once, without retrying
	It("should map 404 to a not-found error without retrying", func() {
		// Arrange
		var hits atomic.Int32
		ts := newServer(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(v1.Error{Error: `run "missing" not found`})
		})
		c := client.New(ts.URL)

		// Act
		_, err := c.GetRun(ctx, "missing")

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		Expect(hits.Load()).To(Equal(int32(1)))
	})

	// Given a daemon rejecting the submitted pipeline
	// When a pipeline is submitted
	// Then the API error message should surface in the status error
	It("should surface 400 bodies as status errors", func() {
		// Arrange
		ts := newServer(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(v1.Error{Error: "validation failed: pipeline name is required"})
		})
		c := client.New(ts.URL)

		// Act
		_, err := c.SubmitRun(ctx, []byte("tasks: []"))

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(client.IsStatusError(err, http.StatusBadRequest)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("validation failed"))
	})

	// Given list filters and pagination settings
	// When the runs are listed
	// Then the request should carry them as query parameters
	It("should encode list parameters", func() {
		// Arrange
		var gotQuery string
		ts := newServer(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v1.RunList{Page: 2, PageCount: 3, Total: 5})
		})
		c := client.New(ts.URL)

		// Act
		list, err := c.ListRuns(ctx, client.ListRunsParams{
			States:    []string{"failed", "cancelled"},
			Pipelines: []string{"nightly"},
			Page:      2,
			PageSize:  2,
		})

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Total).To(Equal(5))
		Expect(gotQuery).To(ContainSubstring("state=failed"))
		Expect(gotQuery).To(ContainSubstring("state=cancelled"))
		Expect(gotQuery).To(ContainSubstring("pipeline=nightly"))
		Expect(gotQuery).To(ContainSubstring("page=2"))
		Expect(gotQuery).To(ContainSubstring("pageSize=2"))
	})

	// Given a submitted pipeline the daemon accepts
	// When the response arrives
	// Then the accepted run should decode
	It("should decode the submit response", func() {
		// Arrange
		var gotMethod, gotContentType string
		ts := newServer(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotContentType = r.Header.Get("Content-Type")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(v1.SubmitRunResponse{
				Id:       "e9f1f338-39c8-4d51-a20a-b9bbbf01a433",
				Pipeline: "chain",
				State:    v1.RunStatePending,
			})
		})
		c := client.New(ts.URL)

		// Act
		resp, err := c.SubmitRun(ctx, []byte("name: chain\n"))

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(gotMethod).To(Equal(http.MethodPost))
		Expect(gotContentType).To(Equal("application/yaml"))
		Expect(resp.Pipeline).To(Equal("chain"))
		Expect(resp.State).To(Equal(v1.RunStatePending))
	})

	// Given a healthy daemon
	// When the health endpoint is checked
	// Then no error should come back
	It("should report health", func() {
		// Arrange
		ts := newServer(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		c := client.New(ts.URL)

		// Act + Assert
		Expect(c.Health(ctx)).To(Succeed())
	})
})
