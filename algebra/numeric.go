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
	"fmt"
	"math/big"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/errs"
)

// NumericEvaluator evaluates coefficients as rational numbers in-process,
// with math/big.Rat. It never shells out, and only understands literal
// rational text: it cannot resolve bound symbols the way the CAS helper
// does, so it is unsuitable as the production numeric-shadow pool (whose
// operands are the same symbolic expressions the coefficient pool
// carries — see Engine's numeric ProcessFactory). It remains useful as a
// fast, subprocess-free Evaluator for tests that only ever combine
// literal rational coefficients.
type NumericEvaluator struct{}

// NewNumericEvaluator returns a ready NumericEvaluator. It holds no
// resources, so a single instance may be shared across goroutines.
func NewNumericEvaluator() *NumericEvaluator { return &NumericEvaluator{} }

func (NumericEvaluator) Evaluate(op Operation, operands []coefficient.Coefficient) (coefficient.Coefficient, error) {
	if len(operands) == 0 {
		return coefficient.Zero(), nil
	}

	acc, err := parseRat(operands[0])
	if err != nil {
		return coefficient.Coefficient{}, err
	}
	if op == Sub {
		// Mirrors the process evaluator's protocol, which renders Sub as
		// a leading unary minus ("-(a)-(b)..."): the first operand's
		// sign flips regardless of how many operands follow.
		acc.Neg(acc)
	}

	for _, c := range operands[1:] {
		r, err := parseRat(c)
		if err != nil {
			return coefficient.Coefficient{}, err
		}
		switch op {
		case Add:
			acc.Add(acc, r)
		case Sub:
			acc.Sub(acc, r)
		case Mul:
			acc.Mul(acc, r)
		case Div:
			if r.Sign() == 0 {
				return coefficient.Coefficient{}, errs.ErrUnknownOperation.New("division by zero")
			}
			acc.Quo(acc, r)
		default:
			return coefficient.Coefficient{}, errs.ErrUnknownOperation.New(op)
		}
	}

	return coefficient.FromString(acc.RatString()), nil
}

func (NumericEvaluator) Close() error { return nil }

func parseRat(c coefficient.Coefficient) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(c.String())
	if !ok {
		return nil, fmt.Errorf("algebra: %q is not a numeric probe value", c.String())
	}
	return r, nil
}
