package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders n back into a single canonical textual form, used both for
// the round-trip invariant (spec.md §8 property 1: Parse(print(AST)) = AST)
// and as the expression-to-text step pkg/graph's factory needs when it
// stamps a distribution, condition test, or hoisted literal into a graph
// node's code field. Grounded on original_source/pyppl/ppl_code_generator.py,
// whose CodeGenerator visitor this mirrors one tag at a time; unlike that
// visitor we render a single expression-oriented dialect rather than one
// that switches between statement and expression forms per call site.
func Print(n Node) string {
	if n == nil {
		return "None"
	}
	switch v := n.(type) {
	case *Value:
		return printValue(v)
	case *ValueVector:
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			items[i] = Print(it)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case *Symbol:
		return v.Name
	case *Vector:
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			items[i] = Print(it)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case *Dict:
		parts := make([]string, len(v.Entries))
		for i, e := range v.Entries {
			parts[i] = fmt.Sprintf("%s: %s", printValue(e.Key), Print(e.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", Print(v.Left), v.Op, Print(v.Right))
	case *Unary:
		if v.Op == OpNot {
			return fmt.Sprintf("not %s", Print(v.Item))
		}
		return fmt.Sprintf("%s%s", v.Op, Print(v.Item))
	case *Compare:
		if v.SecondRight == nil {
			return fmt.Sprintf("(%s %s %s)", Print(v.Left), v.Op, Print(v.Right))
		}
		return fmt.Sprintf("(%s %s %s %s %s)", Print(v.Left), v.Op, Print(v.Right), *v.SecondOp, Print(v.SecondRight))
	case *Attribute:
		return fmt.Sprintf("%s.%s", Print(v.Base), v.Name)
	case *Subscript:
		return fmt.Sprintf("%s[%s]", Print(v.Base), Print(v.Index))
	case *Slice:
		start, stop := "", ""
		if v.Start != nil {
			start = Print(v.Start)
		}
		if v.Stop != nil {
			stop = Print(v.Stop)
		}
		return fmt.Sprintf("%s[%s:%s]", Print(v.Base), start, stop)
	case *Call:
		args := make([]string, 0, len(v.Args)+len(v.KeywordArgs))
		for _, a := range v.Args {
			args = append(args, Print(a))
		}
		for _, kw := range v.KeywordArgs {
			args = append(args, fmt.Sprintf("%s=%s", kw.Name, Print(kw.Value)))
		}
		return fmt.Sprintf("%s(%s)", Print(v.Function), strings.Join(args, ", "))
	case *If:
		if v.ElseNode == nil {
			return fmt.Sprintf("%s if %s else None", Print(v.IfNode), Print(v.Test))
		}
		return fmt.Sprintf("%s if %s else %s", Print(v.IfNode), Print(v.Test), Print(v.ElseNode))
	case *For:
		return fmt.Sprintf("for %s in %s:\n\t%s", strings.Join(v.Targets, ", "), Print(v.Source), indent(Print(v.Body)))
	case *ListFor:
		if v.Filter != nil {
			return fmt.Sprintf("[%s for %s in %s if %s]", Print(v.Expr), v.Target, Print(v.Source), Print(v.Filter))
		}
		return fmt.Sprintf("[%s for %s in %s]", Print(v.Expr), v.Target, Print(v.Source))
	case *While:
		return fmt.Sprintf("while %s:\n\t%s", Print(v.Test), indent(Print(v.Body)))
	case *Let:
		return fmt.Sprintf("%s = %s\n%s", v.Target, Print(v.Source), Print(v.Body))
	case *Def:
		if fn, ok := v.Value.(*Function); ok {
			return printFunction(v.Name, fn)
		}
		if len(v.Names) > 0 {
			return fmt.Sprintf("%s = %s", strings.Join(v.Names, ", "), Print(v.Value))
		}
		return fmt.Sprintf("%s = %s", v.Name, Print(v.Value))
	case *Function:
		return printFunction("<lambda>", v)
	case *Return:
		if v.Value == nil {
			return "return None"
		}
		return fmt.Sprintf("return %s", Print(v.Value))
	case *Break:
		return "break"
	case *Import:
		if v.Alias != "" {
			return fmt.Sprintf("import %s as %s", v.Module, v.Alias)
		}
		if len(v.Names) > 0 {
			return fmt.Sprintf("from %s import %s", v.Module, strings.Join(v.Names, ", "))
		}
		return fmt.Sprintf("import %s", v.Module)
	case *Sample:
		return fmt.Sprintf("sample(%s)", Print(v.Dist))
	case *Observe:
		return fmt.Sprintf("observe(%s, %s)", Print(v.Dist), Print(v.Value))
	case *Body:
		lines := make([]string, 0, len(v.Items))
		for _, it := range v.Items {
			lines = append(lines, Print(it))
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("<%s>", n.Tag())
	}
}

func printValue(v *Value) string {
	switch v.Kind {
	case ValBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case ValInt:
		return strconv.FormatInt(v.Int, 10)
	case ValFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case ValString:
		return strconv.Quote(v.Str)
	case ValNull:
		return "None"
	default:
		return "None"
	}
}

func printFunction(name string, fn *Function) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		if p.Default != nil {
			params[i] = fmt.Sprintf("%s=%s", p.Name, Print(p.Default))
		} else {
			params[i] = p.Name
		}
	}
	if fn.Vararg != "" {
		params = append(params, "*"+fn.Vararg)
	}
	return fmt.Sprintf("def %s(%s):\n\t%s", name, strings.Join(params, ", "), indent(Print(fn.Body)))
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n\t")
}
