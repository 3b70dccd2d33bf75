package symtab

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/pos"
)

// Table collects every Symbol created during the rename pass, indexed by
// mangled name, plus the free (never-bound) names referenced by the
// program — together a bijection check (spec.md §8 property 2) can be run
// against.
type Table struct {
	byMangled map[string]*Symbol
	Free      map[string]bool
}

func newTable() *Table {
	return &Table{byMangled: map[string]*Symbol{}, Free: map[string]bool{}}
}

func (t *Table) Lookup(mangled string) (*Symbol, bool) {
	s, ok := t.byMangled[mangled]
	return s, ok
}

func (t *Table) All() []*Symbol {
	out := make([]*Symbol, 0, len(t.byMangled))
	for _, s := range t.byMangled {
		out = append(out, s)
	}
	return out
}

type generator struct {
	scopes  *scopeStack
	counter counter
	table   *Table
}

// Generate renames every binding in root to a globally-unique mangled name
// and returns the rewritten tree alongside the symbol Table. It is a single
// scoped pre-order walk: scopes are pushed for Function, For, ListFor, and
// Let, exactly as spec.md §4.3 describes.
func Generate(root ast.Node) (ast.Node, *Table, error) {
	g := &generator{scopes: newScopeStack(), table: newTable()}
	out, err := g.rename(root)
	if err != nil {
		return nil, nil, err
	}
	return out, g.table, nil
}

func (g *generator) declare(name string, global bool) *Symbol {
	sym := &Symbol{Name: name, MangledName: mangle(name, g.counter.next())}
	if global {
		sym.MangledName = name // globals keep their surface name (module-level bindings)
	}
	g.scopes.top.define(name, sym)
	g.table.byMangled[sym.MangledName] = sym
	return sym
}

func (g *generator) rename(n ast.Node) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch v := n.(type) {
	case *ast.Value, *ast.ValueVector, *ast.Break:
		return n, nil

	case *ast.Symbol:
		if sym, ok := g.scopes.top.resolve(v.Name); ok {
			sym.UsageCount++
			nn := *v
			nn.Name = sym.MangledName
			return &nn, nil
		}
		g.table.Free[v.Name] = true
		return v, nil

	case *ast.Vector:
		nn := *v
		items := make([]ast.Node, len(v.Items))
		for i, it := range v.Items {
			renamed, err := g.rename(it)
			if err != nil {
				return nil, err
			}
			items[i] = renamed
		}
		nn.Items = items
		return &nn, nil

	case *ast.Dict:
		nn := *v
		entries := make([]ast.DictEntry, len(v.Entries))
		for i, e := range v.Entries {
			val, err := g.rename(e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = ast.DictEntry{Key: e.Key, Value: val}
		}
		nn.Entries = entries
		return &nn, nil

	case *ast.Binary:
		left, err := g.rename(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := g.rename(v.Right)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Left, nn.Right = left, right
		return &nn, nil

	case *ast.Unary:
		item, err := g.rename(v.Item)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Item = item
		return &nn, nil

	case *ast.Compare:
		left, err := g.rename(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := g.rename(v.Right)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Left, nn.Right = left, right
		if v.SecondRight != nil {
			second, err := g.rename(v.SecondRight)
			if err != nil {
				return nil, err
			}
			nn.SecondRight = second
		}
		return &nn, nil

	case *ast.Attribute:
		base, err := g.rename(v.Base)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Base = base
		return &nn, nil

	case *ast.Subscript:
		base, err := g.rename(v.Base)
		if err != nil {
			return nil, err
		}
		index, err := g.rename(v.Index)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Base, nn.Index = base, index
		if v.Default != nil {
			def, err := g.rename(v.Default)
			if err != nil {
				return nil, err
			}
			nn.Default = def
		}
		return &nn, nil

	case *ast.Slice:
		base, err := g.rename(v.Base)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Base = base
		if v.Start != nil {
			if nn.Start, err = g.rename(v.Start); err != nil {
				return nil, err
			}
		}
		if v.Stop != nil {
			if nn.Stop, err = g.rename(v.Stop); err != nil {
				return nil, err
			}
		}
		return &nn, nil

	case *ast.Call:
		fn, err := g.rename(v.Function)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			if args[i], err = g.rename(a); err != nil {
				return nil, err
			}
		}
		kwargs := make([]ast.KeywordArg, len(v.KeywordArgs))
		for i, kw := range v.KeywordArgs {
			val, err := g.rename(kw.Value)
			if err != nil {
				return nil, err
			}
			kwargs[i] = ast.KeywordArg{Name: kw.Name, Value: val}
		}
		nn := *v
		nn.Function, nn.Args, nn.KeywordArgs = fn, args, kwargs
		return &nn, nil

	case *ast.If:
		test, err := g.rename(v.Test)
		if err != nil {
			return nil, err
		}
		ifNode, err := g.rename(v.IfNode)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Test, nn.IfNode = test, ifNode
		if v.ElseNode != nil {
			if nn.ElseNode, err = g.rename(v.ElseNode); err != nil {
				return nil, err
			}
		}
		return &nn, nil

	case *ast.For:
		source, err := g.rename(v.Source)
		if err != nil {
			return nil, err
		}
		g.scopes.push()
		targets := make([]string, len(v.Targets))
		for i, t := range v.Targets {
			targets[i] = g.declare(t, false).MangledName
		}
		body, err := g.rename(v.Body)
		g.scopes.pop()
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Targets, nn.Source, nn.Body = targets, source, body
		return &nn, nil

	case *ast.ListFor:
		source, err := g.rename(v.Source)
		if err != nil {
			return nil, err
		}
		g.scopes.push()
		target := g.declare(v.Target, false).MangledName
		expr, err := g.rename(v.Expr)
		var filter ast.Node
		if err == nil && v.Filter != nil {
			filter, err = g.rename(v.Filter)
		}
		g.scopes.pop()
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Target, nn.Source, nn.Expr, nn.Filter = target, source, expr, filter
		return &nn, nil

	case *ast.While:
		test, err := g.rename(v.Test)
		if err != nil {
			return nil, err
		}
		body, err := g.rename(v.Body)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Test, nn.Body = test, body
		return &nn, nil

	case *ast.Let:
		source, err := g.rename(v.Source)
		if err != nil {
			return nil, err
		}
		g.scopes.push()
		var mangled string
		if v.Target != "_" {
			mangled = g.declare(v.Target, false).MangledName
		}
		body, err := g.rename(v.Body)
		g.scopes.pop()
		if err != nil {
			return nil, err
		}
		nn := *v
		if mangled != "" {
			nn.Target = mangled
		}
		nn.Source, nn.Body = source, body
		return &nn, nil

	case *ast.Def:
		value, err := g.rename(v.Value)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Value = value
		if len(v.Names) > 0 {
			names := make([]string, len(v.Names))
			for i, name := range v.Names {
				sym, err := g.bindOrAssign(name, v.Global, v.Pos())
				if err != nil {
					return nil, err
				}
				names[i] = sym.MangledName
			}
			nn.Names = names
		} else {
			sym, err := g.bindOrAssign(v.Name, v.Global, v.Pos())
			if err != nil {
				return nil, err
			}
			nn.Name = sym.MangledName
		}
		return &nn, nil

	case *ast.Function:
		g.scopes.push()
		params := make([]ast.Param, len(v.Params))
		seen := map[string]bool{}
		for i, p := range v.Params {
			if seen[p.Name] {
				g.scopes.pop()
				return nil, ferr.At(ferr.SyntaxError, v.Pos(), "duplicate parameter name %q", p.Name)
			}
			seen[p.Name] = true
			mangled := g.declare(p.Name, false).MangledName
			def, err := g.rename(p.Default)
			if err != nil {
				g.scopes.pop()
				return nil, err
			}
			params[i] = ast.Param{Name: mangled, Default: def}
		}
		var vararg string
		if v.Vararg != "" {
			vararg = g.declare(v.Vararg, false).MangledName
		}
		body, err := g.rename(v.Body)
		g.scopes.pop()
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Params, nn.Vararg, nn.Body = params, vararg, body
		return &nn, nil

	case *ast.Return:
		nn := *v
		if v.Value != nil {
			val, err := g.rename(v.Value)
			if err != nil {
				return nil, err
			}
			nn.Value = val
		}
		return &nn, nil

	case *ast.Import:
		nn := *v
		if len(v.Names) > 0 {
			for _, name := range v.Names {
				g.declare(name, false)
			}
		} else {
			alias := v.Alias
			if alias == "" {
				alias = v.Module
			}
			g.declare(alias, false)
		}
		return &nn, nil

	case *ast.Sample:
		dist, err := g.rename(v.Dist)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Dist = dist
		return &nn, nil

	case *ast.Observe:
		dist, err := g.rename(v.Dist)
		if err != nil {
			return nil, err
		}
		val, err := g.rename(v.Value)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Dist, nn.Value = dist, val
		return &nn, nil

	case *ast.Body:
		items := make([]ast.Node, len(v.Items))
		for i, it := range v.Items {
			renamed, err := g.rename(it)
			if err != nil {
				return nil, err
			}
			items[i] = renamed
		}
		nn := *v
		nn.Items = items
		return &nn, nil

	default:
		return nil, ferr.New(ferr.SyntaxError, "symbol table: unhandled node tag %v", n.Tag())
	}
}

// bindOrAssign declares a fresh symbol on first write, and bumps the
// ModifyCount of an already-declared (e.g. loop-carried) name. Reassigning
// a name whose ReadOnly flag is set fails; ModifyCount alone does not make
// a name read-only during this pass.
func (g *generator) bindOrAssign(name string, global bool, p pos.Position) (*Symbol, error) {
	if sym, ok := g.scopes.top.resolve(name); ok {
		if sym.ReadOnly {
			return nil, ferr.At(ferr.SyntaxError, p, "cannot rebind read-only name %q", sym.Name)
		}
		sym.ModifyCount++
		return sym, nil
	}
	sym := g.declare(name, global)
	sym.ModifyCount = 1
	return sym, nil
}
