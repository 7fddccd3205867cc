package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cpg/internal/frontend"
	"cpg/internal/graph"
	"cpg/internal/passes"
	"cpg/internal/scopes"
)

// Manager drives one build: it parses every file with the frontend its
// extension maps to, collects the translation units, and runs the pass
// pipeline over the combined graph.
type Manager struct {
	registry *frontend.Registry
	passes   []passes.Pass
	jobs     int
	strict   bool
	cap      int
	logger   *slog.Logger
}

type Option func(*Manager)

// WithPasses replaces the canonical pass list.
func WithPasses(ps []passes.Pass) Option {
	return func(m *Manager) { m.passes = ps }
}

// WithJobs bounds the number of files parsed concurrently.
func WithJobs(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.jobs = n
		}
	}
}

// WithStrict makes the first unparseable file fail the build.
func WithStrict(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

// WithFixpointCap bounds the iterative resolver passes.
func WithFixpointCap(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.cap = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(registry *frontend.Registry, opts ...Option) *Manager {
	m := &Manager{
		registry: registry,
		passes:   passes.Canonical(),
		jobs:     4,
		cap:      5,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Skipped describes a file the build carried on without.
type Skipped struct {
	File   string
	Reason error
}

// Report summarizes one build.
type Report struct {
	Parsed   int
	Skipped  []Skipped
	Timings  []passes.Timing
	Duration time.Duration
}

// Result is the outcome of a successful build.
type Result struct {
	Units  []*graph.TranslationUnitDecl
	Scopes []*graph.Scope
	Report *Report
}

// Build parses the files concurrently and then enriches the combined
// graph serially. It fails only when no file could be translated, when
// strict mode is set and any file failed, or on a scope imbalance.
func (m *Manager) Build(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	report := &Report{}

	results := make([]*frontend.Result, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.jobs)
	for i, file := range files {
		g.Go(func() error {
			res, err := m.parseOne(gctx, file)
			if err != nil {
				var imbalance *scopes.ImbalanceError
				if errors.As(err, &imbalance) {
					// The scope stack is corrupt; nothing downstream can
					// trust the graph for this build.
					return err
				}
				if m.strict {
					return err
				}
				m.logger.Warn("skipping file", "file", file, "err", err)
				mu.Lock()
				report.Skipped = append(report.Skipped, Skipped{File: file, Reason: err})
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var units []*graph.TranslationUnitDecl
	var scopeRoots []*graph.Scope
	for _, r := range results {
		if r == nil {
			continue
		}
		units = append(units, r.Unit)
		scopeRoots = append(scopeRoots, r.Scope)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no translatable files among %d inputs", len(files))
	}
	report.Parsed = len(units)
	sort.Slice(report.Skipped, func(i, j int) bool {
		return report.Skipped[i].File < report.Skipped[j].File
	})

	pc := passes.NewContext(units, scopeRoots)
	pc.FixpointCap = m.cap
	pc.Logger = m.logger
	m.delimiters(pc)
	report.Timings = passes.Run(ctx, pc, m.passes)

	report.Duration = time.Since(start)
	m.logger.Info("build done",
		"parsed", report.Parsed,
		"skipped", len(report.Skipped),
		"passes", len(report.Timings),
		"took", report.Duration)
	return &Result{Units: units, Scopes: scopeRoots, Report: report}, nil
}

// parseOne allocates a fresh frontend for the file so that parses share
// no mutable state. Scope imbalances surface as panics inside the
// frontend handlers and are converted to errors here.
func (m *Manager) parseOne(ctx context.Context, file string) (res *frontend.Result, err error) {
	fe, err := m.registry.For(file)
	if err != nil {
		return nil, &frontend.TranslationError{File: file, Language: "unknown", Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			if imbalance, ok := r.(*scopes.ImbalanceError); ok {
				err = fmt.Errorf("%s: %w", file, imbalance)
				return
			}
			panic(r)
		}
	}()
	res, perr := fe.Parse(ctx, file)
	if perr != nil {
		return nil, &frontend.TranslationError{File: file, Language: fe.Language(), Err: perr}
	}
	return res, nil
}

// delimiters records each unit's namespace delimiter so that passes can
// split qualified names without knowing the language.
func (m *Manager) delimiters(pc *passes.Context) {
	for _, u := range pc.Units {
		if fe, err := m.registry.For(u.Name); err == nil {
			for _, ext := range fe.Extensions() {
				pc.Delimiters[ext] = fe.Delimiter()
			}
		}
	}
}
