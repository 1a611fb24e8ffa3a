package core

import (
	"errors"
	"fmt"
	"strings"
)

// Generator expands a Matrix into pipeline groups. It holds no state
// besides its settings and is safe for concurrent use.
type Generator struct {
	settings Settings
}

func NewGenerator(s Settings) *Generator {
	return &Generator{settings: s}
}

func (g *Generator) Settings() Settings {
	return g.settings
}

// BuildGroup returns the build group: one step per instance type, each
// compiling the benchmark and publishing it under an instance-qualified name.
func (g *Generator) BuildGroup(instances []InstanceType) (Group, error) {
	if len(instances) == 0 {
		return Group{}, fmt.Errorf("%w: no instance types", ErrEmptyMatrix)
	}
	var errs []error
	for _, i := range instances {
		if err := i.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Group{}, errors.Join(errs...)
	}

	steps := make([]Step, 0, len(instances))
	for _, i := range instances {
		steps = append(steps, g.buildStep(i))
	}
	return Group{
		Name:  g.settings.BuildGroupName,
		ID:    g.settings.BuildGroupID,
		Steps: steps,
	}, nil
}

func (g *Generator) buildStep(i InstanceType) Step {
	s := g.settings
	artifact := ArtifactName(s.Binary, i)
	step := Step{
		Agents:        MergeTags(Tags{{Key: "type", Value: string(i)}}, s.BuildTags...),
		ArtifactPaths: []string{artifact},
		Command: StringList{
			dockerRun(s.Image) + " /bin/bash -c " + `"` + g.buildScript() + `"`,
			fmt.Sprintf("cp target/release/%s %s", s.Binary, artifact),
		},
		ID:      BuildStepID(i),
		Label:   fmt.Sprintf("Build test on %s", i),
		Timeout: s.BuildTimeout,
	}
	if s.BuildPriority != nil {
		step.Priority = intPtr(*s.BuildPriority)
	}
	return step
}

// buildScript is the shell run inside the toolchain container.
func (g *Generator) buildScript() string {
	var parts []string
	if pkgs := g.settings.NativePackages; len(pkgs) > 0 {
		parts = append(parts, "apt update", "apt install "+strings.Join(pkgs, " ")+" -y")
	}
	parts = append(parts, "cargo build --release")
	return " " + strings.Join(parts, " && ")
}

// dockerRun mounts the working directory at /test and runs there.
func dockerRun(image string) string {
	return "docker run --rm -ti -v $(pwd):/test -w /test " + image
}

func intPtr(v int) *int {
	return &v
}
