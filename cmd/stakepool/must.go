// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/lvldb"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/store"
)

func fatal(args ...any) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) {
	log.Init(log.Options{
		Verbosity: int(ctx.Uint64(verbosityFlag.Name)),
		JSON:      ctx.Bool(jsonLogsFlag.Name),
	})
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "org.vechain.stakepool")
		}
		return filepath.Join(home, ".org.vechain.stakepool")
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	return dataDir
}

func mustLoadConfig(ctx *cli.Context) *Config {
	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		fatal(err)
	}
	return cfg
}

func openMainDB(ctx *cli.Context, dataDir string, readOnly bool) *lvldb.LevelDB {
	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              normalizeCacheSize(ctx.Int(cacheFlag.Name)),
		OpenFilesCacheCapacity: suggestFDCache(),
		ReadOnly:               readOnly,
	})
	if err != nil {
		fatal(fmt.Sprintf("open state database [%v]: %v", dir, err))
	}
	return db
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem", "err", err)
	} else {
		// at most a quarter of physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 4)
		if limitMB >= 16 && sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		log.Warn("failed to get fd limit", "err", err)
		return 64
	}
	if limit <= 256 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}
	return min(max(limit/4, 16), 1024)
}

func openEventDB(dataDir string) *eventdb.EventDB {
	dir := filepath.Join(dataDir, "events.db")
	db, err := eventdb.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open event database [%v]: %v", dir, err))
	}
	return db
}

// loadRegistry restores the persisted state, seeding it from cfg on first start.
func loadRegistry(cfg *Config, s *store.Store, events *eventdb.EventDB) (*registry.Registry, map[stakepool.Bytes32]*keeper.Capability) {
	ac, err := cfg.newAccess()
	if err != nil {
		fatal("access config:", err)
	}
	verifier, err := cfg.newVerifier()
	if err != nil {
		fatal("attestation config:", err)
	}
	version, err := s.Version()
	if err != nil {
		fatal("read state:", err)
	}
	if version == 0 {
		reg := registry.New(ac, bank.New(), verifier, events)
		if err := bootstrap(reg, cfg); err != nil {
			fatal("bootstrap:", err)
		}
		if err := reg.Save(context.Background(), s); err != nil {
			fatal("save state:", err)
		}
		log.Info("state seeded from config", "pools", len(reg.Pools()), "keepers", len(reg.Keepers()))
	}
	reg, caps, err := registry.Load(context.Background(), s, ac, verifier, events)
	if err != nil {
		fatal("load state:", err)
	}
	return reg, caps
}

func startAPIServer(ctx *cli.Context, handler http.Handler) (string, func()) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatal(fmt.Sprintf("listen API addr [%v]: %v", addr, err))
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Warn("API server stopped", "err", err)
		}
	}()
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		<-done
	}
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
