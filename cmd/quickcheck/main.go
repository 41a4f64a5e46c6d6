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

// Command quickcheck loads one or more persistent expression stores and
// bakes every stored term as a single-operand add, forcing the algebra
// helper to materialise and normalise it. Grounded on quickcheck.c: a
// warm-up/sanity tool with no solving involved, just load-and-evaluate.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/ManDay/quicksolve/store"
	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
)

var cli struct {
	Databases []string `arg:"" help:"Expression store files (PR<id>.dat) to check." type:"existingfile"`

	Workers    int      `short:"p" default:"1" help:"Number of external algebra helper processes."`
	Symbols    []string `short:"s" placeholder:"sym=val" help:"Symbol binding forwarded to the algebra helper at spawn."`
	CASCommand string   `default:"fermat" help:"External algebra helper executable."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("quickcheck"),
		kong.Description("Force every stored expression term through the algebra helper once."),
	)

	log := logrus.StandardLogger()

	opts := algebra.NewOptions()
	for _, s := range cli.Symbols {
		symbol, value, ok := strings.Cut(s, "=")
		if ok {
			opts.Add(symbol, value)
		}
	}

	workers := cli.Workers
	if workers < 1 {
		workers = 1
	}

	aef, err := operand.New(workers, algebra.NewProcessFactory(cli.CASCommand, nil, opts, log), log)
	if err != nil {
		log.WithError(err).Fatal("quickcheck: spawning algebra helper pool")
	}
	defer aef.Destroy()

	for _, path := range cli.Databases {
		if err := check(aef, path, log); err != nil {
			log.WithError(err).WithField("store", path).Fatal("quickcheck: could not check store")
		}
	}
}

func check(aef *operand.AEF, path string, log logrus.FieldLogger) error {
	fmt.Fprintf(os.Stderr, "Loading database with name %q\n", path)

	db, err := store.Open(path, store.Read)
	if err != nil {
		return err
	}
	defer db.Close()

	cur, err := db.Cursor()
	if err != nil {
		return err
	}
	defer cur.Close()

	for {
		key, value, ok := cur.Next()
		if !ok {
			break
		}
		if store.IsReserved(key) || !strings.HasPrefix(string(key), "row") {
			continue
		}

		var l reflist.List
		if err := l.UnmarshalBinary(value); err != nil {
			log.WithError(err).WithField("key", string(key)).Warn("quickcheck: skipping undecodable entry")
			continue
		}

		fmt.Fprintf(os.Stderr, "Checking entry with key %s\n", string(key))

		checks := operand.NewTerminalGroup(len(l))
		for _, entry := range l {
			issue := operand.NewConstant(entry.Coefficient)
			checks.Push(operand.Bake(aef, algebra.Add, issue))
			issue.Unref()
		}

		for checks.Count() > 0 {
			done := checks.Pop()
			if done != nil {
				if _, err := done.Wait(); err != nil {
					log.WithError(err).WithField("key", string(key)).Error("quickcheck: term failed to evaluate")
				}
				done.Unref()
			}
		}
		checks.Destroy()
	}

	return nil
}
