// Package report is the pipeline's progress logger: short, stage-by-stage
// lines written to an io.Writer, gated by a verbose flag. It carries no
// domain knowledge of PE files, x86, or stack code — that belongs to
// classify.WriteReport, which renders the actual analysis result.
package report

import (
	"fmt"
	"io"
)

// Logger writes stage-progress lines to W when Verbose is true. A
// zero-value Logger with Verbose false is silent and safe to use.
type Logger struct {
	W       io.Writer
	Verbose bool
}

// New returns a Logger writing to w, active only when verbose is true.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{W: w, Verbose: verbose}
}

// Stage logs the start of a pipeline stage, e.g. "decoding .text (4096 bytes)".
func (l *Logger) Stage(format string, args ...any) {
	l.emit(format, args...)
}

// Done logs a stage's result count, e.g. "lifted 12 functions".
func (l *Logger) Done(format string, args ...any) {
	l.emit(format, args...)
}

func (l *Logger) emit(format string, args ...any) {
	if l == nil || !l.Verbose || l.W == nil {
		return
	}
	fmt.Fprintf(l.W, format+"\n", args...)
}
