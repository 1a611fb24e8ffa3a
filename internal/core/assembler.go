package core

import (
	"errors"
	"fmt"
)

// Validate checks every entry up front so a bad matrix fails before
// anything is generated.
func (m Matrix) Validate() error {
	var errs []error
	if len(m.Instances) == 0 {
		errs = append(errs, fmt.Errorf("%w: no instance types", ErrEmptyMatrix))
	}
	if len(m.Kernels) == 0 {
		errs = append(errs, fmt.Errorf("%w: no kernel versions", ErrEmptyMatrix))
	}
	for _, i := range m.Instances {
		errs = append(errs, i.Validate())
	}
	for _, k := range m.Kernels {
		errs = append(errs, k.Validate())
	}
	return errors.Join(errs...)
}

// Assemble builds the whole pipeline: the build group, one test group per
// instance and kernel (instance outer), a wait barrier and the
// post-processing step.
func (g *Generator) Assemble(m Matrix) (*Pipeline, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matrix: %w", err)
	}

	build, err := g.BuildGroup(m.Instances)
	if err != nil {
		return nil, err
	}
	elems := make([]Element, 0, 3+len(m.Instances)*len(m.Kernels))
	elems = append(elems, GroupElement(build))

	opts := TestOptions{ExtraTags: g.settings.TestTags}
	for _, i := range m.Instances {
		for _, k := range m.Kernels {
			grp, err := g.TestGroup(g.testGroupName(i, k), TestGroupID(i, k), BuildStepID(i), i, k, opts)
			if err != nil {
				return nil, err
			}
			elems = append(elems, GroupElement(grp))
		}
	}

	elems = append(elems,
		WaitElement(),
		StepElement(Step{
			Command: StringList{g.settings.PostProcessCommand},
			Label:   g.settings.PostProcessLabel,
		}),
	)

	p := &Pipeline{
		Agents: map[string]string{"queue": g.settings.Queue},
		Steps:  elems,
	}
	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	return p, nil
}
