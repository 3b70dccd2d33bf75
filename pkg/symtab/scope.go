package symtab

import "foppl.dev/compiler/pkg/utils"

// scope is a single lexical level: Function, For, ListFor, and Let bodies
// each push one. Lookups walk outward through prev until the global scope.
type scope struct {
	prev    *scope
	symbols map[string]*Symbol
}

func newScope(prev *scope) *scope {
	return &scope{prev: prev, symbols: map[string]*Symbol{}}
}

func (s *scope) define(name string, sym *Symbol) { s.symbols[name] = sym }

func (s *scope) resolve(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.prev {
		if sym, ok := cur.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// scopeStack is the reusable push/pop idiom from the teacher's ScopeTable,
// specialized to the single nested-scope chain symtab/optimizer need
// (as opposed to the teacher's four parallel Jack scope kinds).
type scopeStack struct {
	stack utils.Stack[*scope]
	top   *scope
}

func newScopeStack() *scopeStack {
	root := newScope(nil)
	return &scopeStack{top: root}
}

func (s *scopeStack) push() {
	s.stack.Push(s.top)
	s.top = newScope(s.top)
}

func (s *scopeStack) pop() {
	s.top, _ = s.stack.Pop()
}
