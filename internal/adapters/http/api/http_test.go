package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/epocher/internal/adapters/http/api"
	service "github.com/okian/epocher/internal/app"
	"github.com/okian/epocher/internal/config"
	"github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	seen      map[string]bool
	reports   map[string]types.JobReport
	submitErr error
	matchErr  error
	lastJob   model.Job
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{seen: map[string]bool{}, reports: map[string]types.JobReport{}}
}

func (m *mockDependencies) Match(ctx context.Context, rec *model.Recording, conditions []string) (types.JobReport, error) {
	if m.matchErr != nil {
		return types.JobReport{}, m.matchErr
	}
	r := types.JobReport{JobID: "sync", Recording: rec.Name, Status: types.JobDone, SubmittedAt: time.Unix(0, 0)}
	for _, c := range conditions {
		r.Conditions = append(r.Conditions, types.ConditionReport{Condition: c, Status: types.StatusOK})
	}
	return r, nil
}

func (m *mockDependencies) Submit(ctx context.Context, job model.Job) (string, bool, error) {
	if m.submitErr != nil {
		return "", false, m.submitErr
	}
	m.lastJob = job
	if job.ID == "" {
		job.ID = "generated"
	}
	if m.seen[job.ID] {
		return job.ID, true, nil
	}
	m.seen[job.ID] = true
	m.reports[job.ID] = types.JobReport{JobID: job.ID, Recording: job.Recording.Name, Status: types.JobQueued}
	return job.ID, false, nil
}

func (m *mockDependencies) Result(ctx context.Context, id string) (types.JobReport, error) {
	r, ok := m.reports[id]
	if !ok {
		return types.JobReport{}, fmt.Errorf("%w: %s", service.ErrJobNotFound, id)
	}
	return r, nil
}

func (m *mockDependencies) Conditions() []string { return []string{"FreeView", "ImoIOD"} }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

const body = `{"job_id":"job-1","recording":{"name":"sub01","sfreq":1000,"channels":{"STI 014":{"events":[{"id":84,"onset":100,"offset":110}]}}},"conditions":["FreeView"]}`

func newMux(deps api.Dependencies, maxBody int64) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, maxBody).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, payload string) *httptest.ResponseRecorder {
	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(payload))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies(), 1<<20)

		Convey("Then health responds with ok", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then metrics are exposed in Prometheus format", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then stats are returned as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["started"], ShouldEqual, true)
		})

		Convey("Then conditions are listed", func() {
			w := do(mux, http.MethodGet, "/conditions", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ImoIOD")
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/match", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/jobs", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestJobsHandler_Match(t *testing.T) {
	Convey("Given the match endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, 1<<20)

		Convey("When posting a valid recording", func() {
			w := do(mux, http.MethodPost, "/match", body)

			Convey("Then the report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.ReportExport
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Recording, ShouldEqual, "sub01")
				So(len(got.Conditions), ShouldEqual, 1)
				So(got.Conditions[0].Condition, ShouldEqual, "FreeView")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/match", "{")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")
		})

		Convey("When the recording is missing or has no sample rate", func() {
			So(do(mux, http.MethodPost, "/match", `{"conditions":["FreeView"]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/match", `{"recording":{"name":"x"}}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a condition is unknown", func() {
			deps.matchErr = fmt.Errorf("%w: %q", config.ErrUnknownCondition, "Nope")
			w := do(mux, http.MethodPost, "/match", body)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When the service is not running", func() {
			deps.matchErr = service.ErrNotStarted
			So(do(mux, http.MethodPost, "/match", body).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When matching fails unexpectedly", func() {
			deps.matchErr = errors.New("boom")
			So(do(mux, http.MethodPost, "/match", body).Code, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given a tiny body limit", t, func() {
		mux := newMux(newMockDependencies(), 16)

		Convey("Then larger bodies are rejected", func() {
			So(do(mux, http.MethodPost, "/match", body).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestJobsHandler_Submit(t *testing.T) {
	Convey("Given the jobs endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, 1<<20)

		Convey("When a job is submitted", func() {
			w := do(mux, http.MethodPost, "/jobs", body)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["job_id"], ShouldEqual, "job-1")
				So(ack["duplicate"], ShouldEqual, false)
				So(deps.lastJob.Conditions, ShouldResemble, []string{"FreeView"})
			})

			Convey("And when it is submitted again", func() {
				w := do(mux, http.MethodPost, "/jobs", body)

				Convey("Then it is acknowledged as a duplicate", func() {
					So(w.Code, ShouldEqual, http.StatusOK)
					So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				})
			})

			Convey("And when it is looked up", func() {
				w := do(mux, http.MethodGet, "/jobs/job-1", "")

				Convey("Then its report is returned", func() {
					So(w.Code, ShouldEqual, http.StatusOK)
					So(w.Body.String(), ShouldContainSubstring, `"status":"queued"`)
				})
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: job job-1", service.ErrQueueFull)
			w := do(mux, http.MethodPost, "/jobs", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Body.String(), ShouldContainSubstring, "backpressure")
		})

		Convey("When looking up an unknown job", func() {
			So(do(mux, http.MethodGet, "/jobs/nope", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the job path is malformed", func() {
			So(do(mux, http.MethodGet, "/jobs/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given kinded API errors", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.match", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.match: bad request: eof")
		})

		Convey("Then kind-only errors render without a cause", func() {
			So(api.NewKind("api.get_job", api.ErrNotFound).Error(), ShouldEqual, "api.get_job: not found")
		})
	})
}
