package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/kardiff/pses/pkg/page"
)

// Submit asks each ready module's guard, in order, whether sub may be
// forwarded. The first hold not already confirmed is shown on the page and
// returned; a nil hold means forward. A guard that errors is logged and
// treated as having no objection.
func (r *Run) Submit(ctx context.Context, sub *page.Submission) *page.Hold {
	for _, reg := range r.ready() {
		guard, ok := reg.Module.(SubmitGuard)
		if !ok {
			continue
		}
		if sub.Confirmation(reg.Name) != "" {
			continue
		}
		hold, err := r.check(ctx, reg.Name, guard, sub)
		if err != nil {
			r.log.Warnf("Submit check %s failed: %v", reg.Name, err)
			continue
		}
		if hold == nil {
			continue
		}
		hold.Module = reg.Name
		if r.page.Surface != nil {
			hold.Show(r.page, sub)
		}
		r.log.Infof("Submission held by %s", reg.Name)
		return hold
	}
	return nil
}

// Commit runs every ready module's recorder after sub was forwarded. All
// recorders run; their errors are joined.
func (r *Run) Commit(ctx context.Context, sub *page.Submission) error {
	var errs []error
	for _, reg := range r.ready() {
		rec, ok := reg.Module.(SubmitRecorder)
		if !ok {
			continue
		}
		if err := r.commit(ctx, reg.Name, rec, sub); err != nil {
			r.log.Errorf("Recording submission in %s failed: %v", reg.Name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Run) ready() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Registration
	for _, reg := range r.regs {
		if r.states[reg.Name] == Ready {
			out = append(out, reg)
		}
	}
	return out
}

func (r *Run) check(ctx context.Context, name string, g SubmitGuard, sub *page.Submission) (hold *page.Hold, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &InitError{Module: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	return g.CheckSubmit(ctx, r.page, sub)
}

func (r *Run) commit(ctx context.Context, name string, rec SubmitRecorder, sub *page.Submission) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &InitError{Module: name, Err: fmt.Errorf("panic: %v", v)}
		}
	}()
	if err := rec.CommitSubmit(ctx, r.page, sub); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
