// Package bootstrap runs the feature modules relevant to a page load once the
// leaf utilities they depend on are ready, isolating failures per module.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kardiff/pses/pkg/logging"
	"github.com/kardiff/pses/pkg/notify"
	"github.com/kardiff/pses/pkg/page"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxAttempts  = 50
)

// State is a module's position in its per-page lifecycle.
type State int

const (
	Unregistered State = iota
	Pending
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unregistered"
	}
}

// Leaf is a utility every module may use. Ready is closed once the leaf can
// serve calls; Initialize then runs before any module.
type Leaf interface {
	Name() string
	Ready() <-chan struct{}
	Initialize(ctx context.Context) error
}

type Config struct {
	Registry *Registry
	// PollInterval times MaxAttempts bounds the wait for each leaf.
	PollInterval time.Duration
	MaxAttempts  int
	Log          logging.Logger
}

type Bootstrapper struct {
	cfg Config
	log logging.Logger
}

func New(cfg Config) *Bootstrapper {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Bootstrapper{cfg: cfg, log: logging.OrNop(cfg.Log)}
}

// Handles reports whether any module is relevant to path.
func (b *Bootstrapper) Handles(path string) bool {
	return len(b.cfg.Registry.Relevant(path)) > 0
}

// Start prepares a run for p. Nothing happens until Initialize is called.
func (b *Bootstrapper) Start(p *page.Page) *Run {
	regs := b.cfg.Registry.Relevant(p.Path())
	r := &Run{
		b:      b,
		page:   p,
		log:    logging.OrNop(p.Log),
		regs:   regs,
		states: make(map[string]State, len(regs)),
		errs:   map[string]error{},
	}
	for _, reg := range regs {
		r.states[reg.Name] = Pending
	}
	return r
}

// Result summarizes one Initialize call.
type Result struct {
	// Aborted is set when a leaf was not ready in time or failed to start.
	Aborted     bool
	Err         error
	Initialized []string
	Failed      []string
}

// Run is the bootstrap of one page load.
type Run struct {
	b    *Bootstrapper
	page *page.Page
	log  logging.Logger
	regs []Registration

	mu         sync.Mutex
	leavesDone bool
	aborted    error
	states     map[string]State
	errs       map[string]error
}

// Modules returns the names of the modules relevant to this page, in order.
func (r *Run) Modules() []string {
	names := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		names = append(names, reg.Name)
	}
	return names
}

// State returns the module's state. Modules not relevant to the page are
// Unregistered.
func (r *Run) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name]
}

// Err returns the error a failed module ended with.
func (r *Run) Err(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs[name]
}

// Initialize waits for the leaves and runs every pending module in order.
// Failures are reported through the surface and the result, never returned.
// Calling it again only runs modules that are still pending.
func (r *Run) Initialize(ctx context.Context) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aborted != nil {
		return Result{Aborted: true, Err: r.aborted}
	}
	if len(r.regs) == 0 {
		r.log.Debugf("No modules for %s", r.page.Path())
		return Result{}
	}

	if !r.leavesDone {
		if err := r.startLeaves(ctx); err != nil {
			r.aborted = err
			r.log.Errorf("Bootstrap aborted: %v", err)
			r.notify(leafMessage(err), notify.Error)
			return Result{Aborted: true, Err: err}
		}
		r.leavesDone = true
	}

	var res Result
	for _, reg := range r.regs {
		if r.states[reg.Name] != Pending {
			continue
		}
		if pre, ok := r.unmet(reg); !ok {
			err := &PrerequisiteError{Module: reg.Name, Prerequisite: pre}
			r.states[reg.Name] = Failed
			r.errs[reg.Name] = err
			r.log.Warnf("%v", err)
			res.Failed = append(res.Failed, reg.Name)
			continue
		}

		r.states[reg.Name] = Initializing
		start := time.Now()
		if err := r.runModule(ctx, reg); err != nil {
			r.states[reg.Name] = Failed
			r.errs[reg.Name] = err
			r.log.Errorf("Module %s failed: %v", reg.Name, err)
			r.notify(fmt.Sprintf("Failed to initialize %s. Some features may be unavailable.", reg.Name), notify.Error)
			res.Failed = append(res.Failed, reg.Name)
			continue
		}
		r.states[reg.Name] = Ready
		r.log.Debugf("Module %s ready in %s", reg.Name, time.Since(start).Round(time.Millisecond))
		res.Initialized = append(res.Initialized, reg.Name)
	}
	return res
}

// startLeaves waits for each leaf in order, then initializes it.
func (r *Run) startLeaves(ctx context.Context) error {
	wait := r.b.cfg.PollInterval * time.Duration(r.b.cfg.MaxAttempts)
	for _, leaf := range r.leaves() {
		timer := time.NewTimer(wait)
		select {
		case <-leaf.Ready():
			timer.Stop()
		case <-timer.C:
			return &DependencyTimeoutError{Dependency: leaf.Name(), Waited: wait}
		case <-ctx.Done():
			timer.Stop()
			return &DependencyTimeoutError{Dependency: leaf.Name(), Waited: wait}
		}
		if err := leaf.Initialize(ctx); err != nil {
			return &InitError{Module: leaf.Name(), Err: err}
		}
	}
	return nil
}

// leaves returns the page's store and surface, in that order.
func (r *Run) leaves() []Leaf {
	var out []Leaf
	if r.page.Store != nil {
		out = append(out, r.page.Store)
	}
	if r.page.Surface != nil {
		out = append(out, r.page.Surface)
	}
	return out
}

// unmet returns the first prerequisite that is not satisfied.
func (r *Run) unmet(reg Registration) (string, bool) {
	for _, pre := range reg.Prerequisites {
		switch pre {
		case CapStore:
			if r.page.Store == nil {
				return pre, false
			}
		case CapSurface:
			if r.page.Surface == nil {
				return pre, false
			}
		case CapDocument:
			if r.page.Doc == nil || r.page.Doc.Get(0) == nil {
				return pre, false
			}
		default:
			if r.states[pre] != Ready {
				return pre, false
			}
		}
	}
	return "", true
}

func (r *Run) runModule(ctx context.Context, reg Registration) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Debugf("Module %s panicked: %v\n%s", reg.Name, rec, debug.Stack())
			err = &InitError{Module: reg.Name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if err := reg.Module.Initialize(ctx, r.page); err != nil {
		return &InitError{Module: reg.Name, Err: err}
	}
	return nil
}

func (r *Run) notify(msg string, kind notify.Kind) {
	if r.page.Surface == nil {
		return
	}
	r.page.Surface.ShowNotification(msg, kind, 5*time.Second)
}

func leafMessage(err error) string {
	var te *DependencyTimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("Dependency timeout: %s did not become ready. Enhancements are disabled on this page.", te.Dependency)
	}
	var ie *InitError
	if errors.As(err, &ie) {
		return fmt.Sprintf("Failed to initialize %s. Enhancements are disabled on this page.", ie.Module)
	}
	return "Enhancements are disabled on this page."
}
