package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// Summary prints a short per-action overview of each pass.
type Summary struct {
	w        io.Writer
	out      *termenv.Output
	renderer Renderer
	tty      bool
}

// SummaryOption configures a Summary.
type SummaryOption func(*Summary)

// WithRenderer renders the summary as a markdown table when the writer is a terminal.
func WithRenderer(r Renderer) SummaryOption {
	return func(s *Summary) {
		s.renderer = r
	}
}

// NewSummary creates a Summary printing to w.
func NewSummary(w io.Writer, opts ...SummaryOption) *Summary {
	s := &Summary{w: w, out: termenv.NewOutput(w)}
	if f, ok := w.(*os.File); ok {
		s.tty = term.IsTerminal(int(f.Fd()))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish implements ports.ReportSink.
func (s *Summary) Publish(_ context.Context, r *domain.Report) error {
	if s.tty && s.renderer != nil {
		rendered, err := s.renderer(Markdown(r))
		if err == nil {
			_, err = io.WriteString(s.w, rendered)
			return err
		}
	}
	return s.plain(r)
}

func (s *Summary) plain(r *domain.Report) error {
	var b strings.Builder
	for _, res := range r.Results() {
		fmt.Fprintf(&b, "%s %s (%s, %s)\n", s.badge(res.Status), res.QualifiedID(), res.Backend, res.Duration.Round(time.Millisecond))
		if res.Error != "" {
			fmt.Fprintf(&b, "      %s\n", s.out.String(Sanitize(res.Error)).Faint())
		}
	}
	succeeded, failed := r.Counts()
	fmt.Fprintf(&b, "%s %d succeeded, %d failed in %s\n",
		s.badge(r.Status()), succeeded, failed, r.Duration.Round(time.Millisecond))
	_, err := io.WriteString(s.w, b.String())
	return err
}

func (s *Summary) badge(st domain.Status) termenv.Style {
	if st == domain.StatusSuccess {
		return s.out.String("PASS").Foreground(s.out.Color("2")).Bold()
	}
	return s.out.String("FAIL").Foreground(s.out.Color("1")).Bold()
}

// Markdown renders r as a markdown table, one row per Action.
func Markdown(r *domain.Report) string {
	var b strings.Builder
	succeeded, failed := r.Counts()
	fmt.Fprintf(&b, "## CIder pass `%s`\n\n", shortID(r.RunID))
	b.WriteString("| Action | Backend | Status | Steps | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, res := range r.Results() {
		status := "✅ success"
		if res.Status != domain.StatusSuccess {
			status = "❌ failed"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
			escapeCell(res.QualifiedID()), res.Backend, status, len(res.Steps), res.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "\n**%d succeeded, %d failed** in %s\n", succeeded, failed, r.Duration.Round(time.Millisecond))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
