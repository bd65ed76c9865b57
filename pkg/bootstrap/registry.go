package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kardiff/pses/pkg/page"
)

// Capabilities a registration may list among its prerequisites besides
// other module names.
const (
	CapStore    = "store"
	CapSurface  = "surface"
	CapDocument = "document"
)

var capabilities = map[string]bool{CapStore: true, CapSurface: true, CapDocument: true}

// Module is a feature module. Initialize mutates the page document and may
// register change handlers on the page form.
type Module interface {
	Initialize(ctx context.Context, p *page.Page) error
}

// SubmitGuard is implemented by modules that may hold a form submission
// until the user confirms it.
type SubmitGuard interface {
	CheckSubmit(ctx context.Context, p *page.Page, sub *page.Submission) (*page.Hold, error)
}

// SubmitRecorder is implemented by modules that persist something once a
// submission has been forwarded.
type SubmitRecorder interface {
	CommitSubmit(ctx context.Context, p *page.Page, sub *page.Submission) error
}

// Registration declares a module to the bootstrapper.
type Registration struct {
	Name string
	// Prerequisites are module names registered earlier, or capabilities.
	Prerequisites []string
	// RelevantPaths are substrings of the page path the module applies to.
	RelevantPaths []string
	Module        Module
}

// Matches reports whether the module applies to path.
func (r Registration) Matches(path string) bool {
	for _, p := range r.RelevantPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Registry holds registrations in registration order, which is also the
// order modules initialize in on any page.
type Registry struct {
	mu    sync.RWMutex
	regs  []Registration
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register validates and appends reg.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("%w: name is required", ErrRegistration)
	}
	if reg.Module == nil {
		return fmt.Errorf("%w: module is required for %s", ErrRegistration, reg.Name)
	}
	if capabilities[reg.Name] {
		return fmt.Errorf("%w: %s is a reserved capability name", ErrRegistration, reg.Name)
	}
	if len(reg.RelevantPaths) == 0 {
		return fmt.Errorf("%w: %s has no relevant paths", ErrRegistration, reg.Name)
	}
	for _, p := range reg.RelevantPaths {
		if p == "" {
			return fmt.Errorf("%w: %s has an empty path pattern", ErrRegistration, reg.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[reg.Name]; exists {
		return fmt.Errorf("%w: %s already registered", ErrRegistration, reg.Name)
	}
	for _, pre := range reg.Prerequisites {
		if capabilities[pre] {
			continue
		}
		if _, ok := r.index[pre]; !ok {
			return fmt.Errorf("%w: %s requires %s, which is not registered before it", ErrRegistration, reg.Name, pre)
		}
	}
	r.index[reg.Name] = len(r.regs)
	r.regs = append(r.regs, reg)
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Relevant returns the registrations matching path, in order.
func (r *Registry) Relevant(path string) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Registration
	for _, reg := range r.regs {
		if reg.Matches(path) {
			out = append(out, reg)
		}
	}
	return out
}

// Names returns every registered module name in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		names = append(names, reg.Name)
	}
	return names
}
