// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package plog is a trimmed descendant of core/log: a logger carried on
// a context.Context, filtered by severity, printing through a
// replaceable io.Writer. It keeps core/log's shape (severity-checked
// handle pulled off the context, chainable value attachment) without its
// protobuf wire format or handler/style machinery, which have no
// component to serve in a standalone preprocessor.
package plog

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Severity orders from least to most urgent, same order as core/log.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "D"
	case Info:
		return "I"
	case Warning:
		return "W"
	case Error:
		return "E"
	default:
		return "?"
	}
}

// Logger writes filtered, tagged records to an underlying writer.
type Logger struct {
	w      io.Writer
	filter Severity
	values []string
}

// New returns a Logger writing to w, suppressing records below filter.
func New(w io.Writer, filter Severity) *Logger {
	return &Logger{w: w, filter: filter}
}

// With returns a copy of l that appends "key=value" (in brackets, after
// the message) to every subsequent record, mirroring core/log's
// ctx.V("key", value) chaining.
func (l *Logger) With(key string, value interface{}) *Logger {
	cp := *l
	cp.values = append(append([]string{}, l.values...), fmt.Sprintf("%s=%v", key, value))
	return &cp
}

func (l *Logger) log(sev Severity, format string, args ...interface{}) {
	if l == nil || sev < l.filter {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if len(l.values) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, joinValues(l.values))
	}
	fmt.Fprintf(l.w, "%s: %s\n", sev, msg)
}

func joinValues(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += " "
		}
		out += v
	}
	return out
}

func (l *Logger) Debugf(format string, args ...interface{})   { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})    { l.log(Info, format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.log(Warning, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.log(Error, format, args...) }

type ctxKey struct{}

// NewContext returns a context carrying l, replacing any logger already
// attached, the way core/log/context.go's putLogger works.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From pulls the Logger off ctx, or a Logger writing to stderr at Info
// severity if none was attached.
func From(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return New(os.Stderr, Info)
}

// D, I, W, E are free functions mirroring core/log's log.D/log.I/log.W/
// log.E package-level helpers, pulling the logger off ctx for callers
// that do not want to hold a *Logger directly.
func D(ctx context.Context, format string, args ...interface{}) { From(ctx).Debugf(format, args...) }
func I(ctx context.Context, format string, args ...interface{}) { From(ctx).Infof(format, args...) }
func W(ctx context.Context, format string, args ...interface{}) { From(ctx).Warningf(format, args...) }
func E(ctx context.Context, format string, args ...interface{}) { From(ctx).Errorf(format, args...) }
