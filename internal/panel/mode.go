package panel

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kingrea/orgpanel/internal/schema"
)

// DisplayMode selects how the organization list is presented.
type DisplayMode string

const (
	ModeSelect            DisplayMode = schema.ModeSelect
	ModeButton            DisplayMode = schema.ModeButton
	ModeCollapsibleButton DisplayMode = schema.ModeCollapsibleButton
)

// ParseDisplayMode normalizes a configured value. Unknown values are kept so
// the renderer can draw nothing for them.
func ParseDisplayMode(raw string) DisplayMode {
	return DisplayMode(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the mode is one of the panel option's choices and
// has a registered producer.
func (m DisplayMode) Known() bool {
	if !schema.DisplayModeOption().Has(string(m)) {
		return false
	}
	_, ok := defaultRegistry.Resolve(m)
	return ok
}

// Producer builds the UI tree for one display mode.
type Producer func(Frame) Node

// Registry maps display modes to their producers.
type Registry struct {
	mu        sync.RWMutex
	producers map[DisplayMode]Producer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{producers: map[DisplayMode]Producer{}}
}

// Register installs a producer. Returns an error if the mode already exists.
func (r *Registry) Register(mode DisplayMode, producer Producer) error {
	if mode == "" {
		return fmt.Errorf("panel: mode is required")
	}
	if producer == nil {
		return fmt.Errorf("panel: producer is required for %s", mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.producers[mode]; exists {
		return fmt.Errorf("panel: %s already registered", mode)
	}
	r.producers[mode] = producer
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(mode DisplayMode, producer Producer) {
	if err := r.Register(mode, producer); err != nil {
		panic(err)
	}
}

// Resolve returns the producer for mode.
func (r *Registry) Resolve(mode DisplayMode) (Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	producer, ok := r.producers[mode]
	return producer, ok
}

// Modes returns a sorted list of registered modes.
func (r *Registry) Modes() []DisplayMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes := make([]DisplayMode, 0, len(r.producers))
	for mode := range r.producers {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

var defaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ModeSelect, renderSelect)
	r.MustRegister(ModeButton, renderButtons)
	r.MustRegister(ModeCollapsibleButton, renderToolbar)
	return r
}
