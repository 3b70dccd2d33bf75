package ast

// Children returns the direct child nodes of n in evaluation order. Passes
// that only need to recurse without variant-specific behavior (the generic
// "visit-children" case the original's duck-typed visitor fell back to)
// use this instead of writing out a full type switch.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *ValueVector:
		return v.Items
	case *Vector:
		return v.Items
	case *Dict:
		out := make([]Node, 0, len(v.Entries))
		for _, e := range v.Entries {
			out = append(out, e.Value)
		}
		return out
	case *Binary:
		return []Node{v.Left, v.Right}
	case *Unary:
		return []Node{v.Item}
	case *Compare:
		children := []Node{v.Left, v.Right}
		if v.SecondRight != nil {
			children = append(children, v.SecondRight)
		}
		return children
	case *Attribute:
		return []Node{v.Base}
	case *Subscript:
		children := []Node{v.Base, v.Index}
		if v.Default != nil {
			children = append(children, v.Default)
		}
		return children
	case *Slice:
		children := []Node{v.Base}
		if v.Start != nil {
			children = append(children, v.Start)
		}
		if v.Stop != nil {
			children = append(children, v.Stop)
		}
		return children
	case *Call:
		children := append([]Node{v.Function}, v.Args...)
		for _, kw := range v.KeywordArgs {
			children = append(children, kw.Value)
		}
		return children
	case *If:
		if v.ElseNode != nil {
			return []Node{v.Test, v.IfNode, v.ElseNode}
		}
		return []Node{v.Test, v.IfNode}
	case *For:
		return []Node{v.Source, v.Body}
	case *ListFor:
		if v.Filter != nil {
			return []Node{v.Source, v.Expr, v.Filter}
		}
		return []Node{v.Source, v.Expr}
	case *While:
		return []Node{v.Test, v.Body}
	case *Let:
		return []Node{v.Source, v.Body}
	case *Def:
		return []Node{v.Value}
	case *Function:
		return []Node{v.Body}
	case *Return:
		if v.Value != nil {
			return []Node{v.Value}
		}
		return nil
	case *Sample:
		return []Node{v.Dist}
	case *Observe:
		return []Node{v.Dist, v.Value}
	case *Body:
		return v.Items
	default:
		return nil
	}
}

// Walk applies fn to n and every descendant, pre-order.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
