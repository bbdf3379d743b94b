package identifier

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// PredicateEvaluator compiles and caches CEL programs for
// CircuitAliasConfig.Predicate expressions. One evaluator is shared across
// every circuit: the environment's variable set is fixed, only the
// expression text varies per circuit.
type PredicateEvaluator struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewPredicateEvaluator builds the CEL environment pushes are evaluated
// against: the set of canonical registries and contextual keys present on
// the push, the namespaces involved, and the identifier count.
func NewPredicateEvaluator() (*PredicateEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("canonical_registries", cel.ListType(cel.StringType)),
		cel.Variable("contextual_keys", cel.ListType(cel.StringType)),
		cel.Variable("namespaces", cel.ListType(cel.StringType)),
		cel.Variable("identifier_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("identifier: build predicate environment: %w", err)
	}
	return &PredicateEvaluator{env: env, cache: make(map[string]cel.Program)}, nil
}

// Evaluate compiles expr (if not already cached) and runs it against vars.
// expr must evaluate to a bool; any other result type is an error.
func (p *PredicateEvaluator) Evaluate(expr string, vars map[string]interface{}) (bool, error) {
	prg, err := p.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("identifier: evaluate predicate: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("identifier: predicate %q did not evaluate to a bool", expr)
	}
	return result, nil
}

func (p *PredicateEvaluator) program(expr string) (cel.Program, error) {
	p.mu.RLock()
	prg, hit := p.cache[expr]
	p.mu.RUnlock()
	if hit {
		return prg, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prg, hit = p.cache[expr]; hit {
		return prg, nil
	}
	ast, issues := p.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("identifier: compile predicate %q: %w", expr, issues.Err())
	}
	built, err := p.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("identifier: build predicate program for %q: %w", expr, err)
	}
	p.cache[expr] = built
	return built, nil
}
