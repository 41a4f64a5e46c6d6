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

package algebra

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/errs"
	"github.com/sirupsen/logrus"
)

// ProcessFactory spawns one external CAS helper subprocess per Evaluator,
// per the original's one-Fermat-per-worker design (quicksolve.c's
// fermat_options threaded through qs_aef_spawn).
type ProcessFactory struct {
	Command string
	Args    []string
	Options *Options
	Log     logrus.FieldLogger
}

// NewProcessFactory returns a Factory that launches Command with Args for
// every worker, applying opts' symbol bindings as "let" statements on
// startup.
func NewProcessFactory(command string, args []string, opts *Options, log logrus.FieldLogger) *ProcessFactory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProcessFactory{Command: command, Args: args, Options: opts, Log: log}
}

func (f *ProcessFactory) NewEvaluator() (Evaluator, error) {
	cmd := exec.Command(f.Command, f.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.ErrEvaluatorDied.Wrap(err, f.Command)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.ErrEvaluatorDied.Wrap(err, f.Command)
	}

	if err := cmd.Start(); err != nil {
		return nil, errs.ErrEvaluatorDied.Wrap(err, f.Command)
	}

	e := &ProcessEvaluator{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		log:    f.Log.WithField("component", "algebra.process"),
	}

	if f.Options != nil {
		for symbol, value := range f.Options.Bindings {
			if err := e.send(fmt.Sprintf("let %s=%s;", symbol, value)); err != nil {
				e.Close()
				return nil, err
			}
			if _, err := e.readResult(); err != nil {
				e.Close()
				return nil, err
			}
		}
	}

	return e, nil
}

// ProcessEvaluator is an Evaluator backed by a single long-lived helper
// subprocess, addressed over a newline-delimited textual protocol: one
// expression per request line, one normalised expression per response line.
type ProcessEvaluator struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	log    logrus.FieldLogger
}

func (e *ProcessEvaluator) Evaluate(op Operation, operands []coefficient.Coefficient) (coefficient.Coefficient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	expr := renderExpression(op, operands)
	if err := e.send(expr); err != nil {
		return coefficient.Coefficient{}, err
	}

	line, err := e.readResult()
	if err != nil {
		return coefficient.Coefficient{}, err
	}
	return coefficient.FromString(line), nil
}

func renderExpression(op Operation, operands []coefficient.Coefficient) string {
	var b strings.Builder
	for j, c := range operands {
		if j > 0 {
			b.WriteString(op.String())
		} else if op == Sub {
			b.WriteString("-")
		}
		b.WriteByte('(')
		b.WriteString(c.String())
		b.WriteByte(')')
	}
	b.WriteByte(';')
	return b.String()
}

func (e *ProcessEvaluator) send(line string) error {
	if _, err := io.WriteString(e.stdin, line+"\n"); err != nil {
		return errs.ErrEvaluatorDied.Wrap(err, "write")
	}
	return nil
}

func (e *ProcessEvaluator) readResult() (string, error) {
	line, err := e.stdout.ReadString('\n')
	if err != nil {
		return "", errs.ErrEvaluatorDied.Wrap(err, "read")
	}
	return strings.TrimSpace(line), nil
}

func (e *ProcessEvaluator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		e.log.WithError(err).Debug("algebra helper exited")
	}
	return nil
}
