package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroup(t *testing.T) {
	g := NewGenerator(DefaultSettings())
	instances := DefaultMatrix().Instances

	grp, err := g.BuildGroup(instances)
	require.NoError(t, err)

	assert.Equal(t, "Build test", grp.Name)
	assert.Equal(t, "build", grp.ID)
	assert.Empty(t, grp.DependsOn)
	require.Len(t, grp.Steps, len(instances))

	for n, i := range instances {
		s := grp.Steps[n]
		assert.Equal(t, "build_"+NormalizeInstance(i), s.ID)
		assert.Empty(t, s.Key)
		assert.Equal(t, "Build test on "+string(i), s.Label)
		assert.Equal(t, []string{"type=" + string(i), "ag=4"}, s.Agents.Strings())
		assert.Equal(t, []string{"entropy-test-" + string(i)}, s.ArtifactPaths)
		assert.Equal(t, 30, s.Timeout)
		assert.Nil(t, s.Priority)
		require.Len(t, s.Command, 2)
		assert.Equal(t,
			`docker run --rm -ti -v $(pwd):/test -w /test rust:1.65-buster /bin/bash -c " apt update && apt install libclang-dev -y && cargo build --release"`,
			s.Command[0])
		assert.Equal(t, "cp target/release/entropy-test entropy-test-"+string(i), s.Command[1])
	}
}

func TestBuildGroupSettings(t *testing.T) {
	s := DefaultSettings()
	s.Image = "rust:1.80"
	s.NativePackages = nil
	s.BuildPriority = intPtr(3)
	g := NewGenerator(s)

	grp, err := g.BuildGroup([]InstanceType{"c7g.metal"})
	require.NoError(t, err)
	step := grp.Steps[0]

	assert.Equal(t, `docker run --rm -ti -v $(pwd):/test -w /test rust:1.80 /bin/bash -c " cargo build --release"`, step.Command[0])
	require.NotNil(t, step.Priority)
	assert.Equal(t, 3, *step.Priority)
}

func TestBuildGroupRejectsMalformedInstances(t *testing.T) {
	g := NewGenerator(DefaultSettings())

	_, err := g.BuildGroup(nil)
	assert.ErrorIs(t, err, ErrEmptyMatrix)

	_, err = g.BuildGroup([]InstanceType{"m5d.metal", "", "m6i.large"})
	require.ErrorIs(t, err, ErrMalformedInstance)
	assert.Contains(t, err.Error(), `"m6i.large"`)
}
