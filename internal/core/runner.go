package core

import (
	"context"
	"fmt"
	"io"

	"entropy-ci/internal/log"
	"entropy-ci/internal/storage"
	"entropy-ci/pkg/utils"
)

// Runner ties together Generator + Render + storage.
type Runner struct {
	Generator *Generator
	Store     *storage.FileStore // optional: also keep a copy on disk
}

func NewRunner(g *Generator, store *storage.FileStore) *Runner {
	return &Runner{Generator: g, Store: store}
}

// Result is one rendered pipeline.
type Result struct {
	Pipeline *Pipeline
	Format   Format
	Body     []byte
	Digest   string
	Path     string // set when the document was stored
}

// Render assembles and serializes the pipeline for m without side effects.
func (r *Runner) Render(m Matrix, f Format) (*Result, error) {
	p, err := r.Generator.Assemble(m)
	if err != nil {
		return nil, err
	}
	body, err := Render(p, f)
	if err != nil {
		return nil, err
	}
	return &Result{
		Pipeline: p,
		Format:   f,
		Body:     body,
		Digest:   utils.Digest(body),
	}, nil
}

// Run renders the pipeline, stores it if a store is configured, and
// only then writes it to w. A failure leaves w untouched.
func (r *Runner) Run(ctx context.Context, m Matrix, f Format, w io.Writer) (*Result, error) {
	l := log.FromContext(ctx)

	res, err := r.Render(m, f)
	if err != nil {
		return nil, err
	}
	l.Debug("rendered pipeline", "instances", len(m.Instances), "kernels", len(m.Kernels), "bytes", len(res.Body))

	if r.Store != nil {
		path, err := r.Store.Save("pipeline"+f.Extension(), res.Body)
		if err != nil {
			return nil, fmt.Errorf("store pipeline: %w", err)
		}
		res.Path = path
		l.Info("stored pipeline", "path", path)
	}

	if _, err := w.Write(res.Body); err != nil {
		return nil, fmt.Errorf("write pipeline: %w", err)
	}

	l.Info("generated pipeline", "format", f, "elements", len(res.Pipeline.Steps), "digest", res.Digest)
	return res, nil
}
