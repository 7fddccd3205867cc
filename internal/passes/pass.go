package passes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cpg/internal/graph"
)

// Context carries the state shared by all passes of one build. Passes
// mutate the graph in place; the unit and scope slices themselves are
// read-only.
type Context struct {
	Units  []*graph.TranslationUnitDecl
	Scopes []*graph.Scope

	// Delimiters maps source file extension to the namespace delimiter
	// of the language that produced it.
	Delimiters map[string]string

	FixpointCap int
	Logger      *slog.Logger
}

func NewContext(units []*graph.TranslationUnitDecl, scopes []*graph.Scope) *Context {
	return &Context{
		Units:       units,
		Scopes:      scopes,
		Delimiters:  make(map[string]string),
		FixpointCap: 5,
		Logger:      slog.Default(),
	}
}

// Delimiter returns the namespace delimiter for the unit's language,
// defaulting to "::".
func (c *Context) Delimiter(unit *graph.TranslationUnitDecl) string {
	if d, ok := c.Delimiters[extOf(unit.Name)]; ok {
		return d
	}
	return "::"
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}

// Pass is one enrichment stage. Passes run serially in registration
// order; a failed pass is logged and the pipeline continues.
type Pass interface {
	Name() string
	Run(ctx context.Context, pc *Context) error
}

// Timing records how long one pass took.
type Timing struct {
	Pass     string
	Duration time.Duration
	Err      error
}

// Run executes the passes in order and returns per-pass timings.
// Errors do not stop the pipeline.
func Run(ctx context.Context, pc *Context, passes []Pass) []Timing {
	timings := make([]Timing, 0, len(passes))
	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			timings = append(timings, Timing{Pass: p.Name(), Err: err})
			break
		}
		start := time.Now()
		err := runRecovered(ctx, pc, p)
		d := time.Since(start)
		if err != nil {
			pc.Logger.Error("pass failed", "pass", p.Name(), "err", err)
		} else {
			pc.Logger.Debug("pass done", "pass", p.Name(), "took", d)
		}
		timings = append(timings, Timing{Pass: p.Name(), Duration: d, Err: err})
	}
	return timings
}

// runRecovered turns a panicking pass into an ordinary pass failure so
// the remaining passes still run.
func runRecovered(ctx context.Context, pc *Context, p Pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Run(ctx, pc)
}

// Canonical returns the default pass list in its required order.
func Canonical() []Pass {
	return []Pass{
		NewFilenameMapper(),
		NewTypeResolver(),
		NewImportResolver(),
		NewVariableUsageResolver(),
		NewCallResolver(),
		NewEOGPass(),
		NewDFGPass(),
	}
}
