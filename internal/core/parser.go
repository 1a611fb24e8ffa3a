package core

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParsePipeline parses a pipeline document. JSON output is valid YAML,
// so both formats go through the YAML decoder.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var pipeline Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pipeline); err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	return &pipeline, nil
}

// LoadPipeline reads and parses the pipeline document at path.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePipeline(data)
}
