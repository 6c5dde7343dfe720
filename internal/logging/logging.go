// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/rs/zerolog"
)

// Options configure the process logger.
type Options struct {
	// Format is "text" (zerolog console output) or "json".
	Format string

	// Level is the lowest level that is logged.
	Level slog.Level
}

// NewHandler returns a slog handler that writes to w.
func NewHandler(w io.Writer, o Options) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: o.Level}

	switch o.Format {
	case "", "text", "plain":
		// Use zerolog's console writer to write pretty logs
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != "msg" {
				return a
			}
			if a.Value.Kind() == slog.KindString {
				return slog.Any("message", a.Value)
			}
			return slog.String("message", fmt.Sprint(a.Value.Any()))
		}
		return slog.NewJSONHandler(&zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
			FormatMessage: func(i interface{}) string {
				s, ok := i.(string)
				if ok {
					return s
				}
				return fmt.Sprint(i)
			},
		}, opts), nil

	case "json":
		return slog.NewJSONHandler(w, opts), nil

	default:
		return nil, errors.UnknownError.WithFormat("log format %q is not supported", o.Format)
	}
}

// With returns a logger scoped to a module.
func With(l *slog.Logger, module string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("module", module)
}
