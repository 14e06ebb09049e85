package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/felixgeelhaar/kudzu-context/internal/compact"
	"github.com/felixgeelhaar/kudzu-context/internal/config"
	"github.com/felixgeelhaar/kudzu-context/internal/docfile"
	"github.com/felixgeelhaar/kudzu-context/internal/kudzu"
	"github.com/felixgeelhaar/kudzu-context/internal/observe"
	"github.com/felixgeelhaar/kudzu-context/internal/sources"
	"github.com/felixgeelhaar/kudzu-context/internal/store"
	"github.com/felixgeelhaar/kudzu-context/internal/trace"
	"github.com/google/uuid"
)

const (
	recordPurpose = "session_context"
	fallbackLine  = "[kudzu-context] Wrote fallback MEMORY.md"
)

// Result is one compiled document and what went into it.
type Result struct {
	Document compact.Document
	Sections compact.Sections
	IDs      sources.IDs
	Degraded bool
	Reason   string
}

type Runner struct {
	Observer *observe.Observer
	// Store may be nil; the run then skips id caching.
	Store  store.Storage
	Client *kudzu.Client
	Config config.Config
	Stdout io.Writer
	Now    func() time.Time
	RunID  string
}

func NewRunner(obs *observe.Observer, s store.Storage, client *kudzu.Client, cfg config.Config) *Runner {
	return &Runner{
		Observer: obs,
		Store:    s,
		Client:   client,
		Config:   cfg,
		Stdout:   os.Stdout,
		Now:      time.Now,
		RunID:    uuid.NewString(),
	}
}

// Probe is the command printed in degraded documents for checking the API.
func Probe(cfg config.Config) string {
	if cfg.Transport == config.TransportHTTP {
		return fmt.Sprintf("curl -s %s/health", cfg.APIURL)
	}
	return fmt.Sprintf("ssh %s \"curl -s %s/health\"", cfg.Host, cfg.APIURL)
}

// Compile runs the pipeline up to a rendered document. Connectivity
// problems produce a degraded result rather than an error.
func (r *Runner) Compile(ctx context.Context) (*Result, error) {
	log := r.Observer.Log().With().Str("run", r.RunID).Logger()

	hctx, span := r.Observer.StartSpan(ctx, "health")
	err := r.Client.Health(hctx)
	r.Observer.Fail(span, err)
	span.End()
	if err != nil {
		if kudzu.IsUnreachable(err) {
			log.Warn().Err(err).Msg("kudzu is unreachable")
		} else {
			log.Warn().Err(err).Msg("kudzu health check failed")
		}
		return r.degraded(reason(err)), nil
	}

	rctx, span := r.Observer.StartSpan(ctx, "resolve")
	ids, err := sources.NewResolver(r.cache(), r.Client, r.Observer).Resolve(rctx)
	r.Observer.Fail(span, err)
	span.End()
	if err != nil {
		if errors.Is(err, sources.ErrNoSources) {
			log.Warn().Msg("no holograms found")
			return r.degraded(err.Error()), nil
		}
		return nil, fmt.Errorf("failed to resolve holograms: %w", err)
	}

	var traces []trace.Trace
	for _, role := range sources.Roles {
		traces = append(traces, r.fetch(ctx, role, ids[role], r.Config.TraceLimit)...)
	}
	for _, id := range sources.ProjectIDs(r.Config.ProjectsPath(), r.Config.ProjectGlobs) {
		traces = append(traces, r.fetch(ctx, "project", id, r.Config.ProjectTraceLimit)...)
	}
	log.Info().Int("traces", len(traces)).Msg("fetched traces")

	_, span = r.Observer.StartSpan(ctx, "build")
	sections := compact.Build(traces)
	doc := compact.Render(sections, r.Config.LineBudget, r.Now())
	span.End()

	log.Info().Int("sections", len(sections.Active())).Int("lines", doc.Len()).Msg("rendered document")
	return &Result{Document: doc, Sections: sections, IDs: ids}, nil
}

// fetch treats any failure as an empty source.
func (r *Runner) fetch(ctx context.Context, source, id string, limit int) []trace.Trace {
	if id == "" {
		return nil
	}
	fctx, span := r.Observer.StartSpan(ctx, "fetch")
	defer span.End()

	traces, err := r.Client.FetchTraces(fctx, id, limit)
	if err != nil {
		r.Observer.Fail(span, err)
		r.Observer.Log().Warn().Str("source", source).Str("hologram", id).Err(err).Msg("failed to fetch traces")
		return nil
	}
	r.Observer.Log().Debug().Str("source", source).Int("count", len(traces)).Msg("fetched")
	return traces
}

// Build compiles the document, writes it to path, records the run and
// prints the summary.
func (r *Runner) Build(ctx context.Context, path string) error {
	res, err := r.Compile(ctx)
	if err != nil {
		return err
	}

	_, span := r.Observer.StartSpan(ctx, "persist")
	err = docfile.Write(path, []byte(res.Document.String()))
	r.Observer.Fail(span, err)
	span.End()
	if err != nil {
		return err
	}

	if res.Degraded {
		r.Observer.Log().Warn().Str("reason", res.Reason).Str("path", path).Msg("wrote degraded document")
		fmt.Fprintln(r.Stdout, fallbackLine)
		return nil
	}

	r.record(ctx, res.IDs[sources.MemoryRole])

	for _, line := range compact.Summary(res.Sections) {
		fmt.Fprintln(r.Stdout, line)
	}
	return nil
}

// record leaves a trace of this run in the memory hologram. Failures are
// only logged.
func (r *Runner) record(ctx context.Context, memoryID string) {
	if memoryID == "" {
		return
	}
	rctx, span := r.Observer.StartSpan(ctx, "record")
	defer span.End()

	machine, _ := os.Hostname()
	data := map[string]any{
		"content":   "Auto-context build for Claude Code session",
		"timestamp": r.Now().Unix(),
		"type":      "context_build",
		"machine":   machine,
		"run_id":    r.RunID,
	}
	if err := r.Client.RecordTrace(rctx, memoryID, recordPurpose, data); err != nil {
		r.Observer.Fail(span, err)
		r.Observer.Log().Debug().Err(err).Msg("failed to record run")
	}
}

func (r *Runner) degraded(why string) *Result {
	return &Result{
		Document: compact.Fallback(why, Probe(r.Config), r.Now()),
		Sections: compact.NewSections(),
		IDs:      sources.IDs{},
		Degraded: true,
		Reason:   why,
	}
}

func (r *Runner) cache() sources.Cache {
	if r.Store == nil {
		return nil
	}
	return r.Store
}

// reason shortens a failure to what the degraded document should show.
func reason(err error) string {
	if errors.Is(err, kudzu.ErrUnhealthy) {
		return kudzu.ErrUnhealthy.Error()
	}
	var reqErr *kudzu.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Err.Error()
	}
	return err.Error()
}
