// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	ethlog "github.com/ethereum/go-ethereum/log"
)

// Logger writes key/value pairs to the root handler.
type Logger interface {
	With(ctx ...any) Logger
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

// contextLogger resolves the root logger on every call, so package level loggers
// created at init time follow a later SetDefault.
type contextLogger struct {
	ctx []any
}

// WithContext returns a logger which prefixes every record with ctx.
func WithContext(ctx ...any) Logger {
	return &contextLogger{ctx: ctx}
}

func (l *contextLogger) root() ethlog.Logger {
	return ethlog.Root()
}

func (l *contextLogger) merge(ctx []any) []any {
	if len(l.ctx) == 0 {
		return ctx
	}
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	return append(merged, ctx...)
}

func (l *contextLogger) With(ctx ...any) Logger {
	return &contextLogger{ctx: l.merge(ctx)}
}

func (l *contextLogger) Trace(msg string, ctx ...any) { l.root().Trace(msg, l.merge(ctx)...) }
func (l *contextLogger) Debug(msg string, ctx ...any) { l.root().Debug(msg, l.merge(ctx)...) }
func (l *contextLogger) Info(msg string, ctx ...any)  { l.root().Info(msg, l.merge(ctx)...) }
func (l *contextLogger) Warn(msg string, ctx ...any)  { l.root().Warn(msg, l.merge(ctx)...) }
func (l *contextLogger) Error(msg string, ctx ...any) { l.root().Error(msg, l.merge(ctx)...) }

var root = WithContext()

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
