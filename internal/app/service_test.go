package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/epocher/internal/app"
	"github.com/okian/epocher/internal/config"
	model "github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func waitDone(svc *service.Service, id string) (types.JobReport, bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r, err := svc.Result(context.Background(), id)
		if err == nil && r.Status != types.JobQueued {
			return r, true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return types.JobReport{}, false
}

func TestService_Start(t *testing.T) {
	Convey("Given a service without a template", t, func() {
		svc := service.New()

		Convey("Then it refuses to start", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoTemplate), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a service with custom options", t, func() {
		svc := service.New(
			service.WithTemplate(mustTemplate()),
			service.WithWorkerCount(2),
			service.WithQueueSize(8),
			service.WithDedupeSize(16),
			service.WithResultCapacity(16),
		)
		ctx := context.Background()
		defer svc.Stop(ctx)

		Convey("When starting the service twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then stats reflect the configuration", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueSize"], ShouldEqual, 8)
				So(svc.Conditions(), ShouldContain, "Behaviour")
			})

			Convey("And when stopping it", func() {
				svc.Stop(ctx)

				Convey("Then it is marked as stopped and rejects work", func() {
					So(svc.GetStats()["started"], ShouldEqual, false)
					_, _, err := svc.Submit(ctx, model.Job{Recording: recording("sub01")})
					So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				})
			})
		})
	})
}

func TestService_Match(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithTemplate(mustTemplate()), service.WithWorkerCount(1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When matching synchronously", func() {
			report, err := svc.Match(ctx, recording("sub01"), []string{"Behaviour"})

			Convey("Then the report is returned directly", func() {
				So(err, ShouldBeNil)
				So(report.JobID, ShouldNotBeEmpty)
				So(report.Status, ShouldEqual, types.JobDone)
				So(report.Conditions[0].Result.Table.Len(), ShouldEqual, 3)
			})
		})

		Convey("When an unknown condition is requested", func() {
			_, err := svc.Match(ctx, recording("sub01"), []string{"Nope"})

			Convey("Then it is rejected before running", func() {
				So(errors.Is(err, config.ErrUnknownCondition), ShouldBeTrue)
			})
		})

		Convey("When the recording is missing", func() {
			_, err := svc.Match(ctx, nil, nil)

			Convey("Then the job is invalid", func() {
				So(errors.Is(err, service.ErrInvalidJob), ShouldBeTrue)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithTemplate(mustTemplate()), service.WithWorkerCount(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When a job is submitted without an id", func() {
			id, dup, err := svc.Submit(ctx, model.Job{Recording: recording("sub01"), Conditions: []string{"Behaviour"}})

			Convey("Then an id is assigned and the report completes", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(id, ShouldNotBeEmpty)
				r, ok := waitDone(svc, id)
				So(ok, ShouldBeTrue)
				So(r.Status, ShouldEqual, types.JobDone)
				So(r.Recording, ShouldEqual, "sub01")
			})
		})

		Convey("When the same id is submitted twice", func() {
			job := model.Job{ID: "job-dup", Recording: recording("sub01")}
			_, first, err1 := svc.Submit(ctx, job)
			id, second, err2 := svc.Submit(ctx, job)

			Convey("Then the second submission is a duplicate", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(id, ShouldEqual, "job-dup")
			})
		})

		Convey("When an unknown condition is submitted", func() {
			_, _, err := svc.Submit(ctx, model.Job{ID: "job-bad", Recording: recording("sub01"), Conditions: []string{"Nope"}})

			Convey("Then nothing is stored", func() {
				So(errors.Is(err, config.ErrUnknownCondition), ShouldBeTrue)
				_, err := svc.Result(ctx, "job-bad")
				So(errors.Is(err, service.ErrJobNotFound), ShouldBeTrue)
			})
		})

		Convey("When looking up an unknown job", func() {
			_, err := svc.Result(ctx, "nope")
			So(errors.Is(err, service.ErrJobNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given a service with several workers", t, func() {
		svc := service.New(service.WithTemplate(mustTemplate()), service.WithWorkerCount(4), service.WithQueueSize(256))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When many goroutines submit jobs", func() {
			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _, err := svc.Submit(ctx, model.Job{
						ID:        fmt.Sprintf("job-%d", i),
						Recording: recording(fmt.Sprintf("sub%02d", i)),
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every job completes", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				for i := 0; i < n; i++ {
					r, ok := waitDone(svc, fmt.Sprintf("job-%d", i))
					So(ok, ShouldBeTrue)
					So(len(r.Conditions), ShouldEqual, 4)
				}
				recent, err := svc.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 10)
				So(svc.GetStats()["storedResults"], ShouldEqual, n)
			})
		})
	})
}
