// Copyright 2026 The Quicksolve Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command quicksolve reads a system definition, one integral per line,
// and solves each in turn, printing its reduction to master integrals.
// Grounded on quicksolve.c's main: SIGINT schedules graceful termination
// between lines, and repeated -s sym=val flags bind symbols forwarded to
// the external algebra helper.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/ManDay/quicksolve"
	"github.com/ManDay/quicksolve/config"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var cli struct {
	Input string `arg:"" type:"existingfile" help:"System definition file, one integral per line."`

	Workers     int      `short:"p" default:"1" help:"Number of external algebra helper processes."`
	Prealloc    int      `short:"w" default:"1048576" help:"Pivot graph preallocation hint."`
	MemoryLimit int64    `short:"l" default:"0" help:"Coefficient cache memory limit in bytes, 0 = unbounded."`
	Symbols     []string `short:"s" placeholder:"sym=val" help:"Symbol binding forwarded to the algebra helper at spawn. May be repeated."`

	Store       string `default:"." help:"Directory holding this run's persistent stores."`
	CASCommand  string `default:"fermat" help:"External algebra helper executable."`
	MetricsAddr string `help:"If set, serve Prometheus metrics on this address."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("quicksolve"),
		kong.Description("Reduce a system of IBP integral relations to master integrals."),
	)

	cfg := config.Default()
	cfg, err := cfg.WithWorkers(cli.Workers)
	fatalIf(err)
	cfg, err = cfg.WithPrealloc(cli.Prealloc)
	fatalIf(err)
	cfg, err = cfg.WithMemoryLimit(cli.MemoryLimit)
	fatalIf(err)
	cfg.StoreDir = cli.Store
	for _, s := range cli.Symbols {
		cfg = cfg.AddSymbol(s)
	}

	engine, err := quicksolve.New(&quicksolve.Config{
		Config:     cfg,
		CASCommand: cli.CASCommand,
	})
	fatalIf(err)
	defer engine.Close()

	if cli.MetricsAddr != "" {
		go serveMetrics(cli.MetricsAddr)
	}

	infile, err := os.Open(cli.Input)
	fatalIf(err)
	defer infile.Close()

	var terminate atomic.Bool
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)
	go func() {
		<-sig
		color.Yellow("Warning: Termination scheduled")
		terminate.Store(true)
	}()

	ctx := context.Background()
	scanner := bufio.NewScanner(infile)
	for scanner.Scan() && !terminate.Load() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		i, err := integral.ParseString(line)
		if err != nil {
			color.Red("quicksolve: %v", err)
			continue
		}
		id := engine.Manage(i)

		if err := engine.Solve(ctx, id, &terminate); err != nil {
			color.Red("quicksolve: %v", err)
			continue
		}
		if terminate.Load() {
			break
		}

		row := engine.Graph().Acquire(id)
		printResult(engine, id, row)
		engine.Graph().Release(id)
	}
	fatalIf(scanner.Err())
}

func printResult(engine *quicksolve.Engine, id integral.Component, row reflist.List) {
	head, _ := engine.Peek(id)
	fmt.Printf("fill %s =", head)

	if len(row) > 1 {
		for _, r := range row {
			if r.Head == id {
				continue
			}
			other, _ := engine.Peek(r.Head)
			fmt.Printf("\n + %s * (%s)", other, r.Coefficient)
		}
	} else {
		fmt.Print("\n0")
	}
	fmt.Print("\n;\n")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logrus.WithField("addr", addr).Info("quicksolve: serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.WithError(err).Warn("quicksolve: metrics server stopped")
	}
}

func fatalIf(err error) {
	if err != nil {
		color.Red("quicksolve: %v", err)
		os.Exit(1)
	}
}
