package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanDefaultPipeline(t *testing.T) {
	plan, err := NewScheduler().Plan(assemble(t, DefaultMatrix()))
	require.NoError(t, err)

	assert.Equal(t, "default", plan.Queue)
	assert.Equal(t, 9, plan.TotalGroups)
	assert.Equal(t, 4+8*6+1, plan.TotalSteps)
	require.Len(t, plan.Waves, 3)
	assert.Equal(t, []string{"build"}, plan.Waves[0])
	assert.Len(t, plan.Waves[1], 8)
	assert.Equal(t, "run_m5d_4_14", plan.Waves[1][0])
	assert.Equal(t, []string{"Post process"}, plan.Waves[2])
}

func TestPlanWaves(t *testing.T) {
	p := &Pipeline{Steps: []Element{
		GroupElement(Group{ID: "a", Steps: []Step{{Key: "a1"}}}),
		GroupElement(Group{ID: "b"}),
		GroupElement(Group{ID: "c", DependsOn: StringList{"a1"}}),
		GroupElement(Group{ID: "d", DependsOn: StringList{"c", "b"}}),
		WaitElement(),
		WaitElement(),
		StepElement(Step{Key: "e"}),
		GroupElement(Group{ID: "f", DependsOn: StringList{"a"}}),
	}}

	plan, err := NewScheduler().Plan(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}, {"d"}, {"e", "f"}}, plan.Waves)
}

func TestPlanUnknownDependency(t *testing.T) {
	p := &Pipeline{Steps: []Element{
		GroupElement(Group{ID: "a", DependsOn: StringList{"missing"}}),
	}}
	_, err := NewScheduler().Plan(p)
	assert.ErrorIs(t, err, ErrUnknownDependency)
}
