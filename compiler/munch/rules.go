package munch

import (
	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	// StmTrigger lowers a matched statement by emitting into m.
	StmTrigger func(m *Muncher, env Env)

	// ExpTrigger lowers a matched expression and returns the register holding its value.
	ExpTrigger func(m *Muncher, env Env) temp.Temp

	Rule[N any, T any] struct {
		Name    string
		Pattern Pattern[N]
		Trigger T

		PC loc.PC // where the rule was added
	}

	// RuleSet is an ordered list of rules for one node category.
	// The first matching rule wins, so more specific patterns go first.
	RuleSet[N any, T any] struct {
		name  string
		rules []Rule[N, T]
	}

	StmRules = RuleSet[tree.Stm, StmTrigger]
	ExpRules = RuleSet[tree.Exp, ExpTrigger]
)

var ErrUnmatchedShape = errors.New("unmatched shape")

func NewRuleSet[N any, T any](name string) *RuleSet[N, T] {
	return &RuleSet[N, T]{name: name}
}

func NewStmRules(name string) *StmRules { return NewRuleSet[tree.Stm, StmTrigger](name) }
func NewExpRules(name string) *ExpRules { return NewRuleSet[tree.Exp, ExpTrigger](name) }

// Add appends a rule with the lowest priority so far.
func (s *RuleSet[N, T]) Add(name string, p Pattern[N], trigger T) {
	s.rules = append(s.rules, Rule[N, T]{
		Name:    name,
		Pattern: p,
		Trigger: trigger,
		PC:      loc.Caller(1),
	})
}

// Select returns the first rule matching n and its captures.
func (s *RuleSet[N, T]) Select(n N) (Rule[N, T], Env, error) {
	for _, r := range s.rules {
		env, ok := Match(r.Pattern, n)
		if ok {
			return r, env, nil
		}
	}

	return Rule[N, T]{}, nil, errors.Wrap(ErrUnmatchedShape, "%v rules: %v", s.name, n)
}

func (s *RuleSet[N, T]) Name() string { return s.name }

func (s *RuleSet[N, T]) Len() int { return len(s.rules) }

// Rules returns the rules in priority order. The result must not be modified.
func (s *RuleSet[N, T]) Rules() []Rule[N, T] { return s.rules }
