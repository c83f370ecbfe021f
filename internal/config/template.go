package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	detect "github.com/okian/epocher/internal/domain/detect"
	matching "github.com/okian/epocher/internal/domain/matching"
	model "github.com/okian/epocher/internal/domain/model"
	pipeline "github.com/okian/epocher/internal/domain/pipeline"
)

// Template section and role keys.
const (
	keyDefault    = "default"
	keyConditions = "conditions"
	roleMarker    = "marker"
	roleResponse  = "response"
	roleIOD       = "iod"
)

// Template holds the condition template: a default section merged under every
// entry of the conditions map.
type Template struct {
	k     *koanf.Koanf
	names []string
}

// LoadTemplate reads a YAML template from path.
func LoadTemplate(_ context.Context, path string) (*Template, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return newTemplate(k)
}

// ParseTemplate reads a YAML template from memory.
func ParseTemplate(_ context.Context, doc []byte) (*Template, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(doc), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return newTemplate(k)
}

func newTemplate(k *koanf.Koanf) (*Template, error) {
	names := k.MapKeys(keyConditions)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no conditions", ErrInvalidTemplate)
	}
	for _, n := range names {
		if strings.Contains(n, ".") {
			return nil, fmt.Errorf("%w: condition name %q contains '.'", ErrInvalidTemplate, n)
		}
	}
	return &Template{k: k, names: names}, nil
}

// Names returns the condition names in sorted order.
func (t *Template) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether name is a condition of the template.
func (t *Template) Has(name string) bool {
	for _, n := range t.names {
		if n == name {
			return true
		}
	}
	return false
}

// Merged returns the default section with the condition's overrides applied.
func (t *Template) Merged(name string) (*koanf.Koanf, error) {
	if !t.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, name)
	}
	m := koanf.New(".")
	if err := m.Merge(t.k.Cut(keyDefault)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if err := m.Merge(t.k.Cut(keyConditions + "." + name)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return m, nil
}

// Condition resolves one condition for a recording sampled at sfreq. Windows
// given in seconds are converted to the nearest tick.
func (t *Template) Condition(name string, sfreq float64) (*pipeline.Condition, error) {
	m, err := t.Merged(name)
	if err != nil {
		return nil, err
	}
	r := resolver{k: m, sfreq: sfreq, channels: map[string]pipeline.Channel{}}
	c, err := r.condition(name)
	if err != nil {
		return nil, &pipeline.ConditionError{Condition: name, Err: err}
	}
	return c, nil
}

// Conditions resolves every named condition, or all when names is empty.
func (t *Template) Conditions(names []string, sfreq float64) ([]*pipeline.Condition, error) {
	if len(names) == 0 {
		names = t.names
	}
	out := make([]*pipeline.Condition, 0, len(names))
	for _, n := range names {
		c, err := t.Condition(n, sfreq)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type resolver struct {
	k        *koanf.Koanf
	sfreq    float64
	channels map[string]pipeline.Channel
}

func (r *resolver) condition(name string) (*pipeline.Condition, error) {
	marker, err := r.role(roleMarker)
	if err != nil {
		return nil, err
	}
	c := &pipeline.Condition{
		Name:       name,
		Marker:     marker,
		TypeResult: matching.Hit,
		Parameters: r.k.Raw(),
	}
	if s := r.k.String(roleMarker + ".type_result"); s != "" {
		if c.TypeResult, err = matching.ParseOutcome(s); err != nil {
			return nil, err
		}
	}
	if r.k.Bool(roleIOD + ".response.matching") {
		iodMarker, err := r.role(roleIOD + "." + roleMarker)
		if err != nil {
			return nil, err
		}
		stage, err := r.stage(roleIOD + "." + roleResponse)
		if err != nil {
			return nil, err
		}
		c.IOD = &pipeline.IODStage{Marker: iodMarker, Stage: *stage}
	}
	if r.k.Bool(roleResponse + ".matching") {
		if c.Response, err = r.stage(roleResponse); err != nil {
			return nil, err
		}
	}
	c.Channels = r.channels
	return c, nil
}

// role reads {channel, prefix, type_input} at path and registers the channel.
func (r *resolver) role(path string) (pipeline.Role, error) {
	ch := r.k.String(path + ".channel")
	if ch == "" {
		return pipeline.Role{}, fmt.Errorf("%w: %s.channel is required", ErrInvalidConfig, path)
	}
	field, err := model.ParseTimeField(r.k.String(path + ".type_input"))
	if err != nil {
		return pipeline.Role{}, fmt.Errorf("%w: %s.type_input: %w", ErrInvalidConfig, path, err)
	}
	if err := r.channel(ch); err != nil {
		return pipeline.Role{}, err
	}
	return pipeline.Role{Channel: ch, Prefix: r.k.String(path + ".prefix"), Field: field}, nil
}

func (r *resolver) stage(path string) (*pipeline.Stage, error) {
	role, err := r.role(path)
	if err != nil {
		return nil, err
	}
	cfg, err := r.matching(role.Channel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role.Channel, err)
	}
	return &pipeline.Stage{Response: role, Config: cfg}, nil
}

// channel reads a channel section: events.stim_channel, event_id, and_mask,
// system_delay_ms and events.min_duration.
func (r *resolver) channel(name string) error {
	if _, ok := r.channels[name]; ok {
		return nil
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("%w: channel section %q contains '.'", ErrInvalidConfig, name)
	}
	sec := r.k.Cut(name)
	label := sec.String("events.stim_channel")
	if label == "" {
		return fmt.Errorf("%w: %s.events.stim_channel is required", ErrInvalidConfig, name)
	}
	ids, err := model.ParseIDs(sec.Get("event_id"))
	if err != nil {
		return fmt.Errorf("%w: %s.event_id: %w", ErrInvalidConfig, name, err)
	}
	r.channels[name] = pipeline.Channel{
		Label: label,
		Params: detect.Params{
			EventIDs:      ids,
			AndMask:       sec.Int64("and_mask"),
			SystemDelayMS: sec.Float64("system_delay_ms"),
			MinDuration:   sec.Float64("events.min_duration"),
		},
	}
	return nil
}

// matching builds the matching configuration of a response channel section.
func (r *resolver) matching(name string) (*matching.Config, error) {
	sec := r.k.Cut(name)
	w, err := r.window(sec)
	if err != nil {
		return nil, err
	}
	counts, err := matching.ParseCounts(sec.Get("counts"))
	if err != nil {
		return nil, err
	}
	targets, err := model.ParseIDs(sec.Get("event_id"))
	if err != nil {
		return nil, err
	}
	early, err := matching.ParseEarlyPolicy(sec.Get("early_ids_to_ignore"))
	if err != nil {
		return nil, err
	}
	return matching.NewConfig(
		matching.WithWindow(w),
		matching.WithCounts(counts),
		matching.WithTargetIDs(targets),
		matching.WithEarlyIgnore(early),
	)
}

func (r *resolver) window(sec *koanf.Koanf) (matching.Window, error) {
	if sec.Exists("window_tsl") {
		v := sec.Int64s("window_tsl")
		if len(v) != 2 {
			return matching.Window{}, fmt.Errorf("%w: window_tsl needs two values", matching.ErrInvalidWindow)
		}
		return matching.Window{Start: v[0], End: v[1]}, nil
	}
	v := sec.Float64s("window")
	if len(v) != 2 {
		return matching.Window{}, fmt.Errorf("%w: window needs two values", matching.ErrInvalidWindow)
	}
	if r.sfreq <= 0 {
		return matching.Window{}, fmt.Errorf("%w: sample rate %v", detect.ErrInvalidSampleRate, r.sfreq)
	}
	return matching.Window{
		Start: int64(detect.Ticks(v[0], r.sfreq)),
		End:   int64(detect.Ticks(v[1], r.sfreq)),
	}, nil
}
