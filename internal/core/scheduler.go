package core

import (
	"errors"
	"fmt"
)

// PlanResult summarizes what a pipeline would run and in which order.
type PlanResult struct {
	Queue       string     `json:"queue"`
	TotalGroups int        `json:"total_groups"`
	TotalSteps  int        `json:"total_steps"`
	Waves       [][]string `json:"waves"`
}

// Scheduler works out the order in which the orchestrator may start
// pipeline elements. It only reads the declared edges; it runs nothing.
type Scheduler struct{}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Plan groups elements into waves. An element lands one wave after the
// latest element it depends on, and never before the last wait barrier.
func (s *Scheduler) Plan(p *Pipeline) (*PlanResult, error) {
	res := &PlanResult{Queue: p.Queue()}

	// wave of each defined id; steps inside a group share the group's wave
	wave := make(map[string]int)
	floor, last := 0, -1
	var errs []error

	for _, e := range p.Steps {
		switch {
		case e.Wait:
			if last >= floor {
				floor = last + 1
			}
			continue
		case e.Group != nil:
			res.TotalGroups++
			res.TotalSteps += len(e.Group.Steps)
		case e.Step != nil:
			res.TotalSteps++
		default:
			errs = append(errs, ErrInvalidElement)
			continue
		}

		w := floor
		if e.Group != nil {
			for _, dep := range e.Group.DependsOn {
				dw, ok := wave[dep]
				if !ok {
					errs = append(errs, fmt.Errorf("%w: group %q depends on %q", ErrUnknownDependency, e.Group.ID, dep))
					continue
				}
				w = max(w, dw+1)
			}
			wave[e.Group.ID] = w
			for _, st := range e.Group.Steps {
				wave[st.Identifier()] = w
			}
		} else if id := e.Step.Identifier(); id != "" {
			wave[id] = w
		}

		for len(res.Waves) <= w {
			res.Waves = append(res.Waves, nil)
		}
		res.Waves[w] = append(res.Waves[w], e.Name())
		last = max(last, w)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}
