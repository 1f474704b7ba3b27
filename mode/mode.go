// Package mode defines the search modes a turn can run in. A mode selects
// the system prompt and the subset of the tool catalogue the model may call.
package mode

import (
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/internal/util"
)

// ID identifies a mode.
type ID string

const (
	Web      ID = "web"
	Academic ID = "academic"
	YouTube  ID = "youtube"
	Analysis ID = "analysis"
	Fun      ID = "fun"
)

// Mode is a prompt template plus the names of the tools it enables. The
// template may use {{.Date}} (1/2/2006) and {{.LongDate}} (Mon, Jan 02, 2006).
type Mode struct {
	ID     ID       `json:"id"`
	Prompt string   `json:"-"`
	Tools  []string `json:"tools"`
}

// Resolved is a mode with its prompt rendered for one turn.
type Resolved struct {
	ID           ID
	Instructions string
	Tools        []string
}

// Defaults returns the built-in modes.
func Defaults() []Mode {
	return []Mode{
		{ID: Web, Prompt: webPrompt, Tools: []string{
			"web_search", "get_weather_data", "retrieve", "nearby_search", "track_flight",
			"tmdb_search", "trending_movies", "trending_tv", "find_place", "text_search",
		}},
		{ID: Academic, Prompt: academicPrompt, Tools: []string{"academic_search", "code_interpreter"}},
		{ID: YouTube, Prompt: youtubePrompt, Tools: []string{"youtube_search"}},
		{ID: Analysis, Prompt: analysisPrompt, Tools: []string{"code_interpreter", "stock_chart", "currency_converter"}},
		{ID: Fun, Prompt: funPrompt, Tools: []string{}},
	}
}

// ToolChecker reports whether a tool name is registered.
type ToolChecker interface {
	Has(name string) bool
}

// Options configure a Registry.
type Options struct {
	// Now supplies the date embedded in prompts.
	Now func() time.Time
}

// Registry maps mode ids to modes. It is immutable after construction.
type Registry struct {
	modes map[ID]Mode
	order []ID
	now   func() time.Time
}

// NewRegistry builds a registry from modes (Defaults() when none are given).
// Duplicate ids and empty prompts are rejected.
func NewRegistry(modes []Mode, optFns ...func(o *Options)) (*Registry, error) {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(modes) == 0 {
		modes = Defaults()
	}
	r := &Registry{modes: make(map[ID]Mode, len(modes)), now: opts.Now}
	for _, m := range modes {
		if m.ID == "" {
			return nil, core.NewError(core.KindConfiguration, "mode id must not be empty")
		}
		if _, dup := r.modes[m.ID]; dup {
			return nil, core.NewError(core.KindConfiguration, fmt.Sprintf("mode %q defined twice", m.ID))
		}
		if m.Prompt == "" {
			return nil, core.NewError(core.KindConfiguration, fmt.Sprintf("mode %q has an empty prompt", m.ID))
		}
		if m.Tools == nil {
			m.Tools = []string{}
		}
		r.modes[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r, nil
}

// Get returns the mode registered under id.
func (r *Registry) Get(id ID) (Mode, bool) {
	m, ok := r.modes[id]
	return m, ok
}

// List returns the modes in registration order.
func (r *Registry) List() []Mode {
	out := make([]Mode, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modes[id])
	}
	return out
}

// Resolve renders the prompt of the mode for the current date. An unknown
// id is a ConfigurationError.
func (r *Registry) Resolve(id ID) (*Resolved, error) {
	m, ok := r.modes[id]
	if !ok {
		return nil, core.NewError(core.KindConfiguration, fmt.Sprintf("unknown mode %q", id))
	}
	now := r.now()
	instructions, err := util.RenderTemplate(m.Prompt, map[string]any{
		"Date":     now.Format("1/2/2006"),
		"LongDate": now.Format("Mon, Jan 02, 2006"),
	})
	if err != nil {
		return nil, core.WrapError(core.KindConfiguration, fmt.Sprintf("render prompt of mode %q", id), err)
	}
	tools := make([]string, len(m.Tools))
	copy(tools, m.Tools)
	return &Resolved{ID: id, Instructions: instructions, Tools: tools}, nil
}

// Validate checks that every tool named by a mode is registered and that
// every prompt renders.
func (r *Registry) Validate(tools ToolChecker) error {
	var missing []string
	for _, id := range r.order {
		for _, name := range r.modes[id].Tools {
			if !tools.Has(name) {
				missing = append(missing, fmt.Sprintf("%s/%s", id, name))
			}
		}
		if _, err := r.Resolve(id); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return core.NewError(core.KindConfiguration, fmt.Sprintf("modes reference unregistered tools: %v", missing))
	}
	return nil
}
