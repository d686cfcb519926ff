// Package logx provides stage-scoped diagnostic logging. The pipeline has
// no use for a structured/leveled logging framework — every message is a
// one-line trace of what a stage just did, the same texture as the source
// implementation's cout tracing (rewriteGlobals announcing the globals it
// detected, SEE announcing an interruption point). Wrapping the stdlib
// log.Logger behind a tiny Stage() helper is the smallest thing that lets
// tests capture output via an io.Writer sink; no third-party logger in the
// example pack fits a domain this narrow better than the standard library.
package logx

import (
	"io"
	"log"
	"os"
)

var sink io.Writer = os.Stderr

// SetOutput redirects all stage logging, primarily for test capture.
func SetOutput(w io.Writer) {
	sink = w
}

// Logger is a stage-prefixed logger, e.g. "[SEE] ...".
type Logger struct {
	prefix string
}

// Stage returns a Logger that prefixes every line with "[name] ".
func Stage(name string) *Logger {
	return &Logger{prefix: "[" + name + "] "}
}

func (l *Logger) Printf(format string, args ...any) {
	log.New(sink, l.prefix, 0).Printf(format, args...)
}

func (l *Logger) Println(args ...any) {
	log.New(sink, l.prefix, 0).Println(args...)
}
