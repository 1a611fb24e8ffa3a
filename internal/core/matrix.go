package core

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// TestOptions are per-group overrides for the test matrix. Nil fields fall
// back to the generator's settings.
type TestOptions struct {
	ExtraTags Tags
	Priority  *int
	Timeout   *int
}

// TestGroup expands one (instance, kernel) pair into a group of benchmark
// steps, one per (randomness source, request size). Sources vary in the
// outer loop and sizes in the inner one.
//
// The first character of name is used as a visual marker in every step
// label, so name must not be empty.
func (g *Generator) TestGroup(name, id, dependsOn string, instance InstanceType, kernel KernelVersion, opts TestOptions) (Group, error) {
	if err := errors.Join(instance.Validate(), kernel.Validate()); err != nil {
		return Group{}, err
	}
	if name == "" {
		return Group{}, fmt.Errorf("%w: group %q", ErrEmptyGroupName, id)
	}
	marker, _ := utf8.DecodeRuneInString(name)

	s := g.settings
	priority, timeout := s.TestPriority, s.TestTimeout
	if opts.Priority != nil {
		priority = *opts.Priority
	}
	if opts.Timeout != nil {
		timeout = *opts.Timeout
	}
	agents := MergeTags(Tags{
		{Key: "type", Value: string(instance)},
		{Key: "kv", Value: string(kernel)},
	}, opts.ExtraTags...)

	artifact := ArtifactName(s.Binary, instance)
	steps := make([]Step, 0, len(RandomnessSources)*len(RequestSizes))
	for _, rng := range RandomnessSources {
		for _, size := range RequestSizes {
			results := ResultFile(instance, kernel, size, rng)
			steps = append(steps, Step{
				Agents:        agents,
				ArtifactPaths: []string{results},
				Command: StringList{
					fmt.Sprintf("buildkite-agent artifact download %s --step %q .", artifact, BuildStepID(instance)),
					fmt.Sprintf("mv %s %s", artifact, s.Binary),
					fmt.Sprintf("chmod u+x %s", s.Binary),
					fmt.Sprintf("%s %s %s %d %s", dockerRun(s.Image), s.BenchScript, rng, size, results),
				},
				Key:      TestStepKey(instance, kernel, size, rng),
				Label:    fmt.Sprintf("%c %s kv=%s request-size=%d rng:%s", marker, instance, kernel, size, rng),
				Priority: intPtr(priority),
				Timeout:  timeout,
			})
		}
	}

	var deps StringList
	if dependsOn != "" {
		deps = StringList{dependsOn}
	}
	return Group{
		DependsOn: deps,
		Name:      name,
		ID:        id,
		Steps:     steps,
	}, nil
}

// testGroupName is the display name of the group for (i, k).
func (g *Generator) testGroupName(i InstanceType, k KernelVersion) string {
	return fmt.Sprintf("%sTest on %s with %s", g.settings.TestGroupMarker, i, k)
}
