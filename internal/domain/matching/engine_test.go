package matching_test

import (
	"context"
	"errors"
	"testing"

	matching "github.com/okian/epocher/internal/domain/matching"
	model "github.com/okian/epocher/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func mustConfig(w matching.Window, counts matching.Counts, early matching.EarlyPolicy, targets ...int) *matching.Config {
	cfg, err := matching.NewConfig(
		matching.WithWindow(w),
		matching.WithCounts(counts),
		matching.WithTargetIDs(model.NewIDSet(targets...)),
		matching.WithEarlyIgnore(early),
	)
	if err != nil {
		panic(err)
	}
	return cfg
}

func limit(n int) matching.Counts {
	c, err := matching.CountsLimit(n)
	if err != nil {
		panic(err)
	}
	return c
}

func stim(onsets ...int64) *model.EventTable {
	t := &model.EventTable{Label: "STI 014", Prefix: "stim"}
	for _, on := range onsets {
		t.Events = append(t.Events, model.Event{ID: 1, Onset: on, Offset: on + 3})
	}
	return t
}

func resp(events ...model.Event) *model.EventTable {
	return &model.EventTable{Label: "STI 013", Prefix: "resp", Events: events}
}

func run(markers *model.EventTable, responses *model.EventTable, cfg *matching.Config) (*matching.Table, error) {
	return matching.New().Match(context.Background(), matching.Input{
		Condition: "test",
		Markers:   matching.FromEvents(markers, model.FieldOnset),
		Responses: responses,
		Config:    cfg,
	})
}

func TestMatchScenarios(t *testing.T) {
	convey.Convey("Given a marker at onset 100 and window [10,50]", t, func() {
		w := matching.Window{Start: 10, End: 50}
		cfg := mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5)

		convey.Convey("When a target response arrives at 130", func() {
			out, err := run(stim(100), resp(model.Event{ID: 5, Onset: 130, Offset: 140}), cfg)

			convey.Convey("Then one HIT record with divergence 30 is emitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 1)
				rec := out.Records[0]
				convey.So(rec.Outcome, convey.ShouldEqual, matching.Hit)
				convey.So(rec.Divergence, convey.ShouldEqual, 30)
				convey.So(rec.MatchCount, convey.ShouldEqual, 1)
				convey.So(rec.ResponseIndex, convey.ShouldEqual, 0)
				convey.So(rec.Marker.Onset, convey.ShouldEqual, 100)
				convey.So(rec.Bad, convey.ShouldBeFalse)
				convey.So(rec.Selected, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When no response lies in [110,150]", func() {
			out, err := run(stim(100), resp(model.Event{ID: 5, Onset: 300}), cfg)

			convey.Convey("Then one MISSED record with zeroed response is emitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 1)
				rec := out.Records[0]
				convey.So(rec.Outcome, convey.ShouldEqual, matching.Missed)
				convey.So(rec.MatchCount, convey.ShouldEqual, 0)
				convey.So(rec.Divergence, convey.ShouldEqual, 0)
				convey.So(rec.HasResponse, convey.ShouldBeFalse)
				convey.So(rec.Response, convey.ShouldResemble, model.Event{})
			})
		})

		convey.Convey("When the first in-window response is not a target", func() {
			out, err := run(stim(100), resp(
				model.Event{ID: 9, Onset: 120},
				model.Event{ID: 5, Onset: 130},
			), cfg)

			convey.Convey("Then exactly one WRONG record is emitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 1)
				convey.So(out.Records[0].Outcome, convey.ShouldEqual, matching.Wrong)
				convey.So(out.Records[0].Response.ID, convey.ShouldEqual, 9)
			})
		})
	})

	convey.Convey("Given a window that opens 5 ticks after the marker", t, func() {
		w := matching.Window{Start: 5, End: 50}
		responses := resp(
			model.Event{ID: 7, Onset: 102, Offset: 103},
			model.Event{ID: 5, Onset: 120, Offset: 125},
		)

		convey.Convey("When a response arrives at 102", func() {
			out, err := run(stim(100), responses, mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5))

			convey.Convey("Then only a TOO-EARLY record is emitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 1)
				rec := out.Records[0]
				convey.So(rec.Outcome, convey.ShouldEqual, matching.TooEarly)
				convey.So(rec.MatchCount, convey.ShouldEqual, 1)
				convey.So(rec.Response.Onset, convey.ShouldEqual, 102)
			})
		})

		convey.Convey("When the early id is ignored", func() {
			out, err := run(stim(100), responses, mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreIDs(model.NewIDSet(7)), 5))

			convey.Convey("Then the window is searched normally", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 1)
				convey.So(out.Records[0].Outcome, convey.ShouldEqual, matching.Hit)
				convey.So(out.Records[0].Response.Onset, convey.ShouldEqual, 120)
			})
		})

		convey.Convey("When the too-early check is disabled", func() {
			out, err := run(stim(100), responses, mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreAll(), 5))

			convey.Convey("Then the early response never flags the marker", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Records[0].Outcome, convey.ShouldEqual, matching.Hit)
			})
		})

		convey.Convey("When only the offset of an earlier press falls before the window", func() {
			out, err := run(stim(100), resp(
				model.Event{ID: 7, Onset: 90, Offset: 101},
				model.Event{ID: 5, Onset: 120},
			), mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5))

			convey.Convey("Then the marker is still too early", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Records[0].Outcome, convey.ShouldEqual, matching.TooEarly)
				convey.So(out.Records[0].Response.Onset, convey.ShouldEqual, 90)
			})
		})
	})

	convey.Convey("Given a window that opens at or before the marker", t, func() {
		responses := resp(model.Event{ID: 7, Onset: 98}, model.Event{ID: 7, Onset: 100})

		convey.Convey("Then TOO-EARLY never fires", func() {
			for _, w := range []matching.Window{{Start: -5, End: 50}, {Start: 0, End: 50}} {
				out, err := run(stim(100), responses, mustConfig(w, matching.CountsAll(), matching.EarlyIgnoreNone(), 7))
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Count(matching.TooEarly), convey.ShouldEqual, 0)
				convey.So(out.Count(matching.Hit), convey.ShouldBeGreaterThan, 0)
			}
		})
	})

	convey.Convey("Given an integer count limit of 2", t, func() {
		w := matching.Window{Start: 10, End: 50}
		three := resp(
			model.Event{ID: 5, Onset: 120},
			model.Event{ID: 5, Onset: 130},
			model.Event{ID: 5, Onset: 140},
		)

		convey.Convey("When three target responses are in the window", func() {
			out, err := run(stim(100), three, mustConfig(w, limit(2), matching.EarlyIgnoreNone(), 5))

			convey.Convey("Then all of them are WRONG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 3)
				convey.So(out.Count(matching.Wrong), convey.ShouldEqual, 3)
				convey.So(out.Records[2].MatchCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When two responses are found and one is not a target", func() {
			out, err := run(stim(100), resp(
				model.Event{ID: 5, Onset: 120},
				model.Event{ID: 6, Onset: 130},
			), mustConfig(w, limit(2), matching.EarlyIgnoreNone(), 5))

			convey.Convey("Then both are WRONG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Count(matching.Wrong), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the limit admits all three", func() {
			out, err := run(stim(100), three, mustConfig(w, limit(3), matching.EarlyIgnoreNone(), 5))
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Count(matching.Hit), convey.ShouldEqual, 3)
		})

		convey.Convey("When the policy is unset", func() {
			out, err := run(stim(100), three, mustConfig(w, matching.Counts{}, matching.EarlyIgnoreNone(), 5))

			convey.Convey("Then the limit is the number found", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Count(matching.Hit), convey.ShouldEqual, 3)
			})
		})
	})

	convey.Convey("Given counts all", t, func() {
		w := matching.Window{Start: 10, End: 50}
		cfg := mustConfig(w, matching.CountsAll(), matching.EarlyIgnoreNone(), 5)

		convey.Convey("When in-window responses exist but none is a target", func() {
			out, err := run(stim(100), resp(model.Event{ID: 9, Onset: 120}), cfg)

			convey.Convey("Then nothing is emitted for the marker", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When targets and others are mixed", func() {
			out, err := run(stim(100), resp(
				model.Event{ID: 5, Onset: 115},
				model.Event{ID: 9, Onset: 120},
				model.Event{ID: 5, Onset: 145},
			), cfg)

			convey.Convey("Then every target becomes its own HIT", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 2)
				convey.So(out.Records[0].ResponseIndex, convey.ShouldEqual, 0)
				convey.So(out.Records[1].ResponseIndex, convey.ShouldEqual, 2)
				convey.So(out.Records[1].MatchCount, convey.ShouldEqual, 2)
			})
		})
	})
}

func TestMatchProperties(t *testing.T) {
	convey.Convey("Given many markers and a dense response stream", t, func() {
		markers := stim(3, 100, 200, 300, 400, 500, 600, 700)
		var events []model.Event
		for i := int64(0); i < 80; i++ {
			id := 5
			if i%3 == 0 {
				id = 6
			}
			events = append(events, model.Event{ID: id, Onset: i * 9, Offset: i*9 + 4})
		}
		responses := resp(events...)
		before := append([]model.Event(nil), responses.Events...)
		w := matching.Window{Start: -10, End: 40}

		convey.Convey("When counts is first", func() {
			out, err := run(markers, responses, mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5))

			convey.Convey("Then every in-bounds marker yields exactly one record", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 7)
			})

			convey.Convey("Then divergence reconstructs the marker time exactly", func() {
				for _, rec := range out.Records {
					if rec.Outcome == matching.Hit || rec.Outcome == matching.Wrong {
						convey.So(rec.Response.Onset-rec.Divergence, convey.ShouldEqual, rec.Marker.Onset)
					}
				}
			})

			convey.Convey("Then the inputs are not modified", func() {
				convey.So(responses.Events, convey.ShouldResemble, before)
			})

			convey.Convey("Then a repeated run is identical", func() {
				again, err := run(markers, responses, mustConfig(w, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5))
				convey.So(err, convey.ShouldBeNil)
				convey.So(again.Records, convey.ShouldResemble, out.Records)
			})
		})

		convey.Convey("Then every emitted outcome is one of the four", func() {
			out, err := run(markers, responses, mustConfig(w, limit(2), matching.EarlyIgnoreNone(), 5))
			convey.So(err, convey.ShouldBeNil)
			for _, rec := range out.Records {
				convey.So(rec.Outcome, convey.ShouldBeIn, matching.Outcomes())
			}
		})
	})

	convey.Convey("Given matching on the response offset", t, func() {
		responses := resp(model.Event{ID: 5, Onset: 105}, model.Event{ID: 5, Onset: 112, Offset: 130})
		out, err := matching.New().Match(context.Background(), matching.Input{
			Markers:       matching.FromEvents(stim(100), model.FieldOnset),
			Responses:     responses,
			ResponseField: model.FieldOffset,
			Config:        mustConfig(matching.Window{Start: 0, End: 50}, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5),
		})

		convey.Convey("Then rows without an offset are not candidates", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Records[0].ResponseIndex, convey.ShouldEqual, 1)
			convey.So(out.Records[0].Divergence, convey.ShouldEqual, 30)
		})
	})
}

func TestMatchBounds(t *testing.T) {
	convey.Convey("Given a marker whose window starts before sample 0", t, func() {
		cfg := mustConfig(matching.Window{Start: -10, End: 10}, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5)
		out, err := run(stim(4, 50), resp(model.Event{ID: 5, Onset: 52}), cfg)

		convey.Convey("Then that marker is skipped silently", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Len(), convey.ShouldEqual, 1)
			convey.So(out.Records[0].Marker.Onset, convey.ShouldEqual, 50)
		})
	})
}

func TestMatchPreflight(t *testing.T) {
	convey.Convey("Given incomplete inputs", t, func() {
		cfg := mustConfig(matching.Window{Start: 0, End: 10}, matching.CountsFirst(), matching.EarlyIgnoreNone(), 5)
		e := matching.New()
		ctx := context.Background()

		convey.Convey("Then a missing configuration aborts", func() {
			out, err := e.Match(ctx, matching.Input{Markers: matching.FromEvents(stim(1), model.FieldOnset), Responses: resp()})
			convey.So(out, convey.ShouldBeNil)
			convey.So(errors.Is(err, matching.ErrMissingConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Then a missing marker table aborts", func() {
			_, err := e.Match(ctx, matching.Input{Responses: resp(), Config: cfg})
			convey.So(errors.Is(err, matching.ErrMissingMarkers), convey.ShouldBeTrue)
		})

		convey.Convey("Then a missing response table aborts with the condition name", func() {
			_, err := e.Match(ctx, matching.Input{Condition: "FreeView", Markers: matching.FromEvents(stim(1), model.FieldOnset), Config: cfg})
			convey.So(errors.Is(err, matching.ErrMissingResponses), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "FreeView")
		})
	})
}
