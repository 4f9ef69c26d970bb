/*
Copyright (c) the execunit-ipc authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/Knetic/govaluate"
)

// backoffDefaultFormula mirrors the shape of fbclock/daemon's MathDefaultM:
// an operator-overridable expression over a small fixed variable set,
// evaluated with govaluate instead of a hardcoded formula.
const backoffDefaultFormula = "min(30, pow(2, attempt))"

// reconnectBackoff evaluates an operator-supplied govaluate expression to
// turn a reconnect attempt count into a wait in seconds, the same
// Prepare-then-Evaluate split fbclock/daemon.Math uses for its M/W/Drift
// expressions.
type reconnectBackoff struct {
	formula string
	expr    *govaluate.EvaluableExpression
}

var backoffFunctions = map[string]govaluate.ExpressionFunction{
	"min": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("min: wrong number of arguments: want 2, got %d", len(args))
		}
		return math.Min(args[0].(float64), args[1].(float64)), nil
	},
	"pow": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow: wrong number of arguments: want 2, got %d", len(args))
		}
		return math.Pow(args[0].(float64), args[1].(float64)), nil
	},
}

// newReconnectBackoff parses formula, defaulting to backoffDefaultFormula
// when formula is empty.
func newReconnectBackoff(formula string) (*reconnectBackoff, error) {
	if formula == "" {
		formula = backoffDefaultFormula
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(formula, backoffFunctions)
	if err != nil {
		return nil, fmt.Errorf("backoff: parsing %q: %w", formula, err)
	}
	for _, v := range expr.Vars() {
		if v != "attempt" {
			return nil, fmt.Errorf("backoff: unsupported variable %q (only 'attempt' is defined)", v)
		}
	}
	return &reconnectBackoff{formula: formula, expr: expr}, nil
}

// wait evaluates the formula for the given 1-based attempt number and
// returns the resulting wait, clamped to be non-negative.
func (b *reconnectBackoff) wait(attempt int) (time.Duration, error) {
	result, err := b.expr.Evaluate(map[string]interface{}{"attempt": float64(attempt)})
	if err != nil {
		return 0, fmt.Errorf("backoff: evaluating %q: %w", b.formula, err)
	}
	seconds, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("backoff: %q did not evaluate to a number", b.formula)
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
