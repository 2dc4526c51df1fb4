package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"techxfer/internal/workflow"
)

// progressPrinter writes poll updates as status lines.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	last     string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *progressPrinter) BatchProgress(_ context.Context, pr workflow.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pr.Text == p.last {
		return
	}
	p.last = pr.Text
	fmt.Fprintln(p.out, renderStatusLine("Batch", statusInfo, pr.Text, p.colorize))
}

func (p *progressPrinter) BatchFinished(_ context.Context, r workflow.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = ""
	fmt.Fprintln(p.out, renderStatusLine("Batch", outcomeKind(r.Outcome), r.Text, p.colorize))
}
