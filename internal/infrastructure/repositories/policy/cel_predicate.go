package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

const celCostLimit = 100000

// celPredicate evaluates a compiled matchExpression against candidate attributes.
type celPredicate struct {
	expression string
	program    cel.Program
}

func newCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("manager", cel.StringType),
		cel.Variable("depType", cel.StringType),
		cel.Variable("updateType", cel.StringType),
		cel.Variable("packageName", cel.StringType),
		cel.Variable("currentVersion", cel.StringType),
		cel.Variable("candidateVersion", cel.StringType),
		cel.Variable("vulnerabilityAlert", cel.BoolType),
	)
}

// compileExpression type-checks expression and rejects anything not producing a bool.
func compileExpression(env *cel.Env, expression string) (*celPredicate, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile error: %w", entities.ErrInvalidRulePredicate, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q returns %s, expected bool",
			entities.ErrInvalidRulePredicate, expression, ast.OutputType())
	}

	program, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: program creation error: %w", entities.ErrInvalidRulePredicate, err)
	}
	return &celPredicate{expression: expression, program: program}, nil
}

func (p *celPredicate) Matches(candidate entities.UpdateCandidate) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{
		"manager":            string(candidate.Manager),
		"depType":            candidate.DepType,
		"updateType":         string(candidate.UpdateType),
		"packageName":        candidate.PackageName,
		"currentVersion":     candidate.CurrentVersion,
		"candidateVersion":   candidate.CandidateVersion,
		"vulnerabilityAlert": candidate.VulnerabilityAlert,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", p.expression, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluating %q: result is %T, expected bool", p.expression, out.Value())
	}
	return matched, nil
}
