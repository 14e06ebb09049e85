// Package observe wires structured logging and tracing for a run.
package observe

import (
	"context"
	"io"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("kudzu-context")

// Options selects where and how an Observer logs.
type Options struct {
	Out io.Writer
	// Verbose enables info and debug output; otherwise only warnings and
	// errors are shown.
	Verbose bool
	// JSON switches from the console handler to one JSON object per line.
	JSON bool
}

// Observer handles logging and tracing
type Observer struct {
	log *bolt.Logger
}

func New(opts Options) *Observer {
	var l *bolt.Logger
	if opts.JSON {
		l = bolt.New(bolt.NewJSONHandler(opts.Out))
	} else {
		l = bolt.New(bolt.NewConsoleHandler(opts.Out))
	}

	if !opts.Verbose {
		l.SetLevel(bolt.WARN)
	}

	return &Observer{log: l}
}

// Discard returns an Observer that drops everything.
func Discard() *Observer {
	return New(Options{Out: io.Discard})
}

// Log returns the underlying logger
func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// StartSpan starts a new OTel span
func (o *Observer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// Fail records err on span and marks it failed.
func (o *Observer) Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Close ensures any buffered logs or traces are flushed (placeholder)
func (o *Observer) Close() error {
	return nil
}
