// Package report renders the end-of-build log of a strip session and delivers
// it to the configured sinks (a log directory, Redis, Postgres).
package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/sigtrap/shaderstrip/internal/ruleengine"
)

// UnstrippedHeader introduces the list of invocations that kept variants.
const UnstrippedHeader = "Unstripped Shaders:"

// Kept is one invocation that still had variants after the chain ran.
type Kept struct {
	Snippet  ruleengine.Snippet
	Variants int
}

// String renders the kept line, indented under UnstrippedHeader.
func (k Kept) String() string {
	return fmt.Sprintf("    %s [%d variants]", k.Snippet, k.Variants)
}

// Report is the outcome of one build.
type Report struct {
	BuildID    string
	StartedAt  time.Time
	FinishedAt time.Time

	// StripTime is the time spent inside the rule chain, excluding the host's work.
	StripTime time.Duration

	Invocations int
	VariantsIn  int
	VariantsOut int

	Removals []ruleengine.Removal
	Kept     []Kept
}

// Removed returns how many variants the chain took out.
func (r *Report) Removed() int {
	return r.VariantsIn - r.VariantsOut
}

// Lines renders the report as free text: a header, one line per removal in
// the order they happened, then the unstripped invocations.
func (r *Report) Lines() []string {
	lines := make([]string, 0, 4+len(r.Removals)+len(r.Kept))

	lines = append(lines,
		fmt.Sprintf("Shader stripping report for build %s", r.BuildID),
		fmt.Sprintf("Started %s, finished %s", r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Shader stripping took %dms total", r.StripTime.Milliseconds()),
		fmt.Sprintf("%d invocations, %d variants in, %d kept, %d stripped", r.Invocations, r.VariantsIn, r.VariantsOut, r.Removed()),
	)
	for _, rm := range r.Removals {
		lines = append(lines, rm.String())
	}

	lines = append(lines, UnstrippedHeader)
	for _, k := range r.Kept {
		lines = append(lines, k.String())
	}
	return lines
}

// WriteTo writes Lines to w, newline terminated.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, line := range r.Lines() {
		m, err := bw.WriteString(line + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Summary is the machine-readable digest returned to build drivers.
type Summary struct {
	BuildID     string    `json:"build_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	StripMillis int64     `json:"strip_ms"`
	Invocations int       `json:"invocations"`
	VariantsIn  int       `json:"variants_in"`
	VariantsOut int       `json:"variants_out"`
	Removed     int       `json:"removed"`
	Removals    int       `json:"removals"`
	Unstripped  int       `json:"unstripped"`
}

// Summary digests the report.
func (r *Report) Summary() Summary {
	return Summary{
		BuildID:     r.BuildID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		StripMillis: r.StripTime.Milliseconds(),
		Invocations: r.Invocations,
		VariantsIn:  r.VariantsIn,
		VariantsOut: r.VariantsOut,
		Removed:     r.Removed(),
		Removals:    len(r.Removals),
		Unstripped:  len(r.Kept),
	}
}
