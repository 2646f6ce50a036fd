// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"io"
	"log/slog"
	"os"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
)

// Legacy verbosity levels, as accepted by the --verbosity flag.
const (
	LegacyLevelCrit = iota
	LegacyLevelError
	LegacyLevelWarn
	LegacyLevelInfo
	LegacyLevelDebug
	LegacyLevelTrace
)

// Options selects the root handler.
type Options struct {
	Verbosity int
	JSON      bool
	Writer    io.Writer
}

// NewHandler builds the handler described by opts. Terminal output is colored when the
// writer is a tty.
func NewHandler(opts Options) slog.Handler {
	wr := opts.Writer
	if wr == nil {
		wr = os.Stderr
	}
	level := ethlog.FromLegacyLevel(opts.Verbosity)
	if opts.JSON {
		return ethlog.JSONHandlerWithLevel(wr, level)
	}
	useColor := false
	if f, ok := wr.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return ethlog.NewTerminalHandlerWithLevel(wr, level, useColor)
}

// Init installs a root logger built from opts.
func Init(opts Options) {
	SetDefault(NewHandler(opts))
}

// SetDefault replaces the root handler.
func SetDefault(h slog.Handler) {
	ethlog.SetDefault(ethlog.NewLogger(h))
}

// Discard silences all logging, used by tests.
func Discard() {
	SetDefault(ethlog.DiscardHandler())
}
