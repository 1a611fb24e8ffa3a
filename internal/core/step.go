package core

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is a single schedulable unit of work.
// Fields are declared in key order so JSON output comes out sorted.
type Step struct {
	Agents        Tags       `json:"agents,omitempty" yaml:"agents,omitempty"`                 // agent targeting, e.g. type=m5d.metal
	ArtifactPaths []string   `json:"artifact_paths,omitempty" yaml:"artifact_paths,omitempty"` // files published after the step
	Command       StringList `json:"command" yaml:"command"`                                   // shell commands, run in order
	ID            string     `json:"id,omitempty" yaml:"id,omitempty"`
	Key           string     `json:"key,omitempty" yaml:"key,omitempty"`
	Label         string     `json:"label" yaml:"label"`
	Priority      *int       `json:"priority,omitempty" yaml:"priority,omitempty"`
	Timeout       int        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Identifier returns the name other steps use to reference s.
// The orchestrator treats id and key as aliases.
func (s Step) Identifier() string {
	if s.Key != "" {
		return s.Key
	}
	return s.ID
}

// Group is a named collection of steps with declared upstream dependencies.
type Group struct {
	DependsOn StringList `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Name      string     `json:"group" yaml:"group"`
	ID        string     `json:"id" yaml:"id"`
	Steps     []Step     `json:"steps" yaml:"steps"`
}

// Tag is an agent tag; it selects which workers may run a step.
type Tag struct {
	Key   string
	Value string
}

// ParseTag parses "key=value".
func ParseTag(s string) (Tag, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return Tag{}, fmt.Errorf("invalid agent tag %q: want key=value", s)
	}
	return Tag{Key: k, Value: v}, nil
}

func (t Tag) String() string {
	return t.Key + "=" + t.Value
}

type Tags []Tag

// ParseTags parses every entry and reports all invalid ones.
func ParseTags(ss []string) (Tags, error) {
	var (
		tags Tags
		errs []error
	)
	for _, s := range ss {
		t, err := ParseTag(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tags = append(tags, t)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return tags, nil
}

// MergeTags appends extra to base. An extra tag whose key is already
// present replaces that tag in place; later extras win over earlier ones.
// Neither input is modified.
func MergeTags(base Tags, extra ...Tag) Tags {
	out := make(Tags, len(base), len(base)+len(extra))
	copy(out, base)
	for _, t := range extra {
		replaced := false
		for i := range out {
			if out[i].Key == t.Key {
				out[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, t)
		}
	}
	return out
}

func (ts Tags) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

func (ts Tags) MarshalJSON() ([]byte, error) {
	return marshalJSON(ts.Strings())
}

func (ts Tags) MarshalYAML() (any, error) {
	return ts.Strings(), nil
}

func (ts *Tags) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	tags, err := ParseTags(raw)
	if err != nil {
		return err
	}
	*ts = tags
	return nil
}

// StringList is a list that the pipeline schema also accepts as a bare
// string. A single entry is written as a string.
type StringList []string

func (s StringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return marshalJSON(s[0])
	}
	return marshalJSON([]string(s))
}

func (s StringList) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}
		*s = StringList{str}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: want a string or a list of strings", node.Line)
}
