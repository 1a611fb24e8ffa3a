package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	build := Group{Name: "Build", ID: "build", Steps: []Step{{ID: "build_a", Label: "a"}}}

	tests := []struct {
		name  string
		steps []Element
		want  []error
	}{
		{
			name: "valid",
			steps: []Element{
				GroupElement(build),
				GroupElement(Group{Name: "Run", ID: "run", DependsOn: StringList{"build_a"}, Steps: []Step{{Key: "k1"}}}),
				WaitElement(),
				StepElement(Step{Label: "post"}),
			},
		},
		{
			name: "dependency defined later",
			steps: []Element{
				GroupElement(Group{Name: "Run", ID: "run", DependsOn: StringList{"build_a"}}),
				GroupElement(build),
			},
			want: []error{ErrUnknownDependency},
		},
		{
			name: "duplicate step key",
			steps: []Element{
				GroupElement(build),
				GroupElement(Group{Name: "Run", ID: "run", Steps: []Step{{Key: "k"}, {Key: "k"}}}),
			},
			want: []error{ErrDuplicateKey},
		},
		{
			name: "id and key share a namespace",
			steps: []Element{
				GroupElement(build),
				StepElement(Step{Key: "build_a"}),
			},
			want: []error{ErrDuplicateKey},
		},
		{
			name: "all problems reported",
			steps: []Element{
				GroupElement(Group{Name: "Run", ID: "run", DependsOn: StringList{"nope"}, Steps: []Step{{Key: "run"}}}),
				{},
			},
			want: []error{ErrUnknownDependency, ErrDuplicateKey, ErrInvalidElement},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Pipeline{Steps: tt.steps})
			if len(tt.want) == 0 {
				require.NoError(t, err)
				return
			}
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}
