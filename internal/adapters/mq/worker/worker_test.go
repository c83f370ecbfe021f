package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/epocher/internal/adapters/mq/worker"
	model "github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan worker.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan worker.Job, 64)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan worker.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(j worker.Job) {
	mq.jobs <- j
}

type mockProcessor struct {
	mu     sync.Mutex
	errors map[string]error
	seen   []string
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{errors: make(map[string]error)}
}

func (mp *mockProcessor) Process(ctx context.Context, job worker.Job) (types.JobReport, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.seen = append(mp.seen, job.ID)
	if err, ok := mp.errors[job.ID]; ok {
		return types.JobReport{}, err
	}
	return types.JobReport{
		JobID:      job.ID,
		Status:     types.JobDone,
		Conditions: []types.ConditionReport{{Condition: "FreeView", Status: types.StatusOK}},
	}, nil
}

func (mp *mockProcessor) setError(id string, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.errors[id] = err
}

type mockSink struct {
	mu      sync.Mutex
	reports map[string]types.JobReport
	err     error
}

func newMockSink() *mockSink {
	return &mockSink{reports: make(map[string]types.JobReport)}
}

func (ms *mockSink) Put(ctx context.Context, r types.JobReport) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.err != nil {
		return ms.err
	}
	ms.reports[r.JobID] = r
	return nil
}

func (ms *mockSink) get(id string) (types.JobReport, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	r, ok := ms.reports[id]
	return r, ok
}

func (ms *mockSink) count() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.reports)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		q := newMockQueue()
		p := newMockProcessor()
		s := newMockSink()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, p, s, worker.WithName("w-1"), worker.WithLogger(nil))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			w := worker.NewInMemoryWorker(q, p, s)
			go w.Run(ctx)

			convey.Convey("And when processing a job", func() {
				q.add(worker.Job{ID: "job-1", Recording: &model.Recording{Name: "sub01"}})

				convey.Convey("Then the report reaches the sink", func() {
					convey.So(waitFor(func() bool { _, ok := s.get("job-1"); return ok }), convey.ShouldBeTrue)
					r, _ := s.get("job-1")
					convey.So(r.Status, convey.ShouldEqual, types.JobDone)
					convey.So(len(r.Conditions), convey.ShouldEqual, 1)
				})
			})

			convey.Convey("And when the processor fails", func() {
				p.setError("job-2", errors.New("boom"))
				q.add(worker.Job{ID: "job-2", Recording: &model.Recording{Name: "sub02"}})

				convey.Convey("Then a failed report is stored", func() {
					convey.So(waitFor(func() bool { _, ok := s.get("job-2"); return ok }), convey.ShouldBeTrue)
					r, _ := s.get("job-2")
					convey.So(r.Status, convey.ShouldEqual, types.StatusFailed)
					convey.So(r.Recording, convey.ShouldEqual, "sub02")
					convey.So(r.CompletedAt.IsZero(), convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when shutting down", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the sink rejects reports", func() {
			s.err = errors.New("full")
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			w := worker.NewInMemoryWorker(q, p, s)
			go w.Run(ctx)
			q.add(worker.Job{ID: "job-3"})

			convey.Convey("Then the worker keeps running", func() {
				convey.So(waitFor(func() bool {
					p.mu.Lock()
					defer p.mu.Unlock()
					return len(p.seen) == 1
				}), convey.ShouldBeTrue)
				q.add(worker.Job{ID: "job-4"})
				convey.So(waitFor(func() bool {
					p.mu.Lock()
					defer p.mu.Unlock()
					return len(p.seen) == 2
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			w := worker.NewInMemoryWorker(q, p, s)
			go w.Run(ctx)
			cancel()

			convey.Convey("Then worker should stop", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new worker pool", t, func() {
		q := newMockQueue()
		p := newMockProcessor()
		s := newMockSink()

		convey.Convey("When creating a pool with default count", func() {
			pool := worker.NewPool(0, q, p, s)

			convey.Convey("Then it has at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When processing many jobs concurrently", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool := worker.NewPool(4, q, p, s)
			pool.Start(ctx)

			for i := 0; i < 40; i++ {
				q.add(worker.Job{ID: fmt.Sprintf("job-%d", i)})
			}

			convey.Convey("Then all jobs are stored and shutdown drains cleanly", func() {
				convey.So(waitFor(func() bool { return s.count() == 40 }), convey.ShouldBeTrue)
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When stopping a pool", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool := worker.NewPool(2, q, p, s)
			pool.Start(ctx)

			convey.Convey("Then Stop returns and a later Shutdown does not panic", func() {
				pool.Stop()
				convey.So(func() { _ = pool.Shutdown(context.Background()) }, convey.ShouldNotPanic)
			})
		})
	})
}
