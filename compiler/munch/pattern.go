package munch

import (
	"fmt"
	"sync/atomic"
)

type (
	// Pattern matches nodes of type N, staging captures in env.
	Pattern[N any] interface {
		match(n N, env Env) bool
	}

	// PatternFunc makes a Pattern of a function.
	// It may write into env even if it fails, Match discards it then.
	PatternFunc[N any] func(n N, env Env) bool

	// Wildcard matches any node and captures it.
	// Every Wildcard is a separate capture slot.
	Wildcard[N any] struct {
		id int64
	}

	literal[N comparable] struct {
		v N
	}

	// Env maps capture slots to the nodes bound to them.
	Env map[any]any
)

var nextWildcard atomic.Int64

func (f PatternFunc[N]) match(n N, env Env) bool { return f(n, env) }

func NewWildcard[N any]() *Wildcard[N] {
	return &Wildcard[N]{id: nextWildcard.Add(1)}
}

func (w *Wildcard[N]) match(n N, env Env) bool {
	env[w] = n

	return true
}

func (w *Wildcard[N]) String() string {
	var z N

	return fmt.Sprintf("_%d:%T", w.id, z)
}

// Get returns the node captured by w.
// It panics if w is not bound, which means a trigger uses
// a wildcard that is not part of its own pattern.
func (w *Wildcard[N]) Get(env Env) N {
	v, ok := env[w]
	if !ok {
		panic(fmt.Sprintf("wildcard %v is not bound", w))
	}

	return v.(N)
}

// Literal matches nodes equal to v.
func Literal[N comparable](v N) Pattern[N] {
	return literal[N]{v: v}
}

func (p literal[N]) match(n N, env Env) bool {
	return n == p.v
}

// Any matches any node without capturing it.
func Any[N any]() Pattern[N] {
	return PatternFunc[N](func(N, Env) bool { return true })
}

// Match tries p against n. On success it returns the captures
// made by p. On failure no captures are visible to anyone.
func Match[N any](p Pattern[N], n N) (Env, bool) {
	env := Env{}

	if !p.match(n, env) {
		return nil, false
	}

	return env, true
}
