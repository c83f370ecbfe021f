package service_test

import (
	"context"

	"github.com/okian/epocher/internal/config"
	model "github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testTemplate = `
default:
  marker:
    channel: Stim
    type_input: onset
    prefix: stim
  response:
    matching: false
    channel: Resp
    type_input: onset
    prefix: resp
  Stim:
    events:
      stim_channel: "STI 014"
    event_id: 84
    and_mask: 255
  Resp:
    events:
      stim_channel: "STI 013"
    event_id: 1
    and_mask: 15
    window_tsl: [0, 500]
    counts: first
    early_ids_to_ignore: all
conditions:
  Markers:
    postfix: markers
  Behaviour:
    response:
      matching: true
  Missing:
    marker:
      channel: Other
    Other:
      events:
        stim_channel: "STI 099"
      event_id: 5
  Absent:
    Stim:
      event_id: 99
`

func mustTemplate() *config.Template {
	tpl, err := config.ParseTemplate(context.Background(), []byte(testTemplate))
	if err != nil {
		panic(err)
	}
	return tpl
}

// recording has a hit at 100, nothing after 1000 and a wrong key after 2000.
func recording(name string) *model.Recording {
	return &model.Recording{
		Name:       name,
		SampleRate: 1000,
		Channels: map[string]model.ChannelData{
			"STI 014": {Events: []model.Event{
				{ID: 84, Onset: 100, Offset: 110},
				{ID: 84, Onset: 1000, Offset: 1010},
				{ID: 84, Onset: 2000, Offset: 2010},
			}},
			"STI 013": {Events: []model.Event{
				{ID: 1, Onset: 300, Offset: 320},
				{ID: 2, Onset: 2100, Offset: 2120},
			}},
		},
	}
}
