package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/cider/pkg/domain"
)

// WriteText renders r as the plain-text log stored in the output directory.
func WriteText(w io.Writer, r *domain.Report) error {
	tw := &textWriter{w: w}
	succeeded, failed := r.Counts()

	tw.printf("CIder run %s\n", r.RunID)
	tw.printf("started:  %s\n", r.StartedAt.Format(time.RFC3339))
	tw.printf("duration: %s\n", r.Duration.Round(time.Millisecond))
	tw.printf("status:   %s (%d succeeded, %d failed)\n", r.Status(), succeeded, failed)

	for _, p := range r.Pipelines {
		tw.printf("\n== pipeline %s [%s] %s\n", p.PipelineID, p.Status, p.Duration.Round(time.Millisecond))
		for _, a := range p.Actions {
			tw.action(a)
		}
	}
	if len(r.Actions) > 0 {
		tw.printf("\n== top-level actions\n")
		for _, a := range r.Actions {
			tw.action(a)
		}
	}
	return tw.err
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) action(a domain.RunResult) {
	t.printf("\n-- action %s (%s) [%s] %s\n", a.QualifiedID(), a.Backend, a.Status, a.Duration.Round(time.Millisecond))
	if a.Error != "" {
		t.printf("   error: %s\n", a.Error)
	}
	for _, s := range a.Steps {
		t.printf("   step %s: exit %d (%s)\n", s.Name, s.ExitCode, s.Duration.Round(time.Millisecond))
		t.stream("stdout", s.Stdout)
		t.stream("stderr", s.Stderr)
	}
}

func (t *textWriter) stream(name, content string) {
	content = Sanitize(content)
	if content == "" {
		return
	}
	t.printf("   [%s]\n", name)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		t.printf("   | %s\n", line)
	}
}
