package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/i2y/brandlink/api"
)

// renderer prints finished answers, as markdown unless raw is set.
type renderer struct {
	out io.Writer
	md  *glamour.TermRenderer
}

func newRenderer(out io.Writer, raw bool) *renderer {
	r := &renderer{out: out}
	if !raw {
		// Fall back to plain text when no renderer can be built.
		r.md, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}
	return r
}

func (r *renderer) answer(text string) error {
	if r.md == nil {
		_, err := fmt.Fprintln(r.out, text)
		return err
	}
	rendered, err := r.md.Render(text)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = fmt.Fprintln(r.out, strings.TrimSpace(rendered))
	return err
}

// placement prints the brand and link lines that follow an answer.
func placement(w io.Writer, md *api.Metadata) {
	if md == nil || md.Link == "" {
		return
	}
	cyan := color.New(color.FgCyan)
	if md.BrandUsed != nil {
		cyan.Fprintf(w, "\n%s ", md.BrandUsed.Name)
		fmt.Fprintln(w, md.Link)
		return
	}
	fmt.Fprintln(w)
	cyan.Fprintln(w, md.Link)
}

func newSpinner(w io.Writer, msg string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	_ = s.Color("cyan")
	return s
}
