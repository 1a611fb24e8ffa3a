package core

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// WaitStep is the barrier marker as the orchestrator spells it.
const WaitStep = "wait"

// Pipeline is the generated document: scheduling metadata plus an
// ordered list of elements.
type Pipeline struct {
	Agents map[string]string `json:"agents" yaml:"agents"` // e.g. queue=default
	Steps  []Element         `json:"steps" yaml:"steps"`
}

// Queue returns the default agent queue.
func (p *Pipeline) Queue() string {
	return p.Agents["queue"]
}

// Element is one entry of Pipeline.Steps: a group, a bare step, or a
// barrier. Exactly one of the three is set.
type Element struct {
	Group *Group
	Step  *Step
	Wait  bool
}

func GroupElement(g Group) Element { return Element{Group: &g} }

func StepElement(s Step) Element { return Element{Step: &s} }

func WaitElement() Element { return Element{Wait: true} }

// Name returns the identifier shown for the element in plans and logs.
func (e Element) Name() string {
	switch {
	case e.Group != nil:
		return e.Group.ID
	case e.Step != nil:
		if id := e.Step.Identifier(); id != "" {
			return id
		}
		return e.Step.Label
	case e.Wait:
		return WaitStep
	}
	return ""
}

func (e Element) value() (any, error) {
	switch {
	case e.Group != nil && e.Step == nil && !e.Wait:
		return e.Group, nil
	case e.Step != nil && e.Group == nil && !e.Wait:
		return e.Step, nil
	case e.Wait && e.Group == nil && e.Step == nil:
		return WaitStep, nil
	}
	return nil, ErrInvalidElement
}

func (e Element) MarshalJSON() ([]byte, error) {
	v, err := e.value()
	if err != nil {
		return nil, err
	}
	return marshalJSON(v)
}

func (e Element) MarshalYAML() (any, error) {
	return e.value()
}

func (e *Element) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != WaitStep {
			return fmt.Errorf("%w: line %d: unexpected %q", ErrInvalidElement, node.Line, node.Value)
		}
		*e = WaitElement()
		return nil
	case yaml.MappingNode:
		// Keys and values alternate in Content.
		for i := 0; i < len(node.Content); i += 2 {
			switch node.Content[i].Value {
			case WaitStep:
				*e = WaitElement()
				return nil
			case "group":
				var g Group
				if err := decodeStrict(node, &g); err != nil {
					return err
				}
				*e = GroupElement(g)
				return nil
			}
		}
		var s Step
		if err := decodeStrict(node, &s); err != nil {
			return err
		}
		*e = StepElement(s)
		return nil
	}
	return fmt.Errorf("%w: line %d", ErrInvalidElement, node.Line)
}

// decodeStrict decodes node into v rejecting unknown fields. node.Decode
// does not carry over the outer decoder's KnownFields setting.
func decodeStrict(node *yaml.Node, v any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}
