package core

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of a pipeline: every group id
// and step key is unique, and every depends_on names something defined
// earlier in the document. All violations are reported together.
func Validate(p *Pipeline) error {
	var (
		errs []error
		seen = make(map[string]struct{})
	)
	define := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateKey, id))
			return
		}
		seen[id] = struct{}{}
	}

	for i, e := range p.Steps {
		if _, err := e.value(); err != nil {
			errs = append(errs, fmt.Errorf("steps[%d]: %w", i, err))
			continue
		}
		switch {
		case e.Group != nil:
			for _, dep := range e.Group.DependsOn {
				if _, ok := seen[dep]; !ok {
					errs = append(errs, fmt.Errorf("%w: group %q depends on %q", ErrUnknownDependency, e.Group.ID, dep))
				}
			}
			define(e.Group.ID)
			for _, s := range e.Group.Steps {
				define(s.Identifier())
			}
		case e.Step != nil:
			define(e.Step.Identifier())
		}
	}
	return errors.Join(errs...)
}
