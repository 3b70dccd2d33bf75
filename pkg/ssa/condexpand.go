package ssa

import "foppl.dev/compiler/pkg/ast"

// expandConditions lifts an If out from underneath the
// Binary/Unary/Call/Sample/Observe that wraps one of its operands, so that a branching value feeding a
// distribution argument ends up as If(test, dist(a), dist(b)) rather than
// dist(If(test, a, b)) — the shape pkg/graph's walker needs to see the
// condition before the distribution. A Def whose value is an If (such as a
// phi-Def) keeps that If as its value, so each name stays the target of
// exactly one Def. Grounded on
// original_source/pyppl/ppl_cond_expander.py.
func expandConditions(root ast.Node) (ast.Node, error) {
	return expandNode(root)
}

func expandNode(n ast.Node) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch v := n.(type) {
	case *ast.Binary:
		return expandBinary(v)
	case *ast.Unary:
		return expandUnary(v)
	case *ast.Call:
		return expandCall(v)
	case *ast.Def:
		return expandDef(v)
	case *ast.Let:
		body, err := expandNode(v.Body)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Body = body
		return &nn, nil
	case *ast.Body:
		items := make([]ast.Node, len(v.Items))
		for i, it := range v.Items {
			out, err := expandNode(it)
			if err != nil {
				return nil, err
			}
			items[i] = out
		}
		return &ast.Body{Items: items}, nil
	case *ast.If:
		ifNode, err := expandNode(v.IfNode)
		if err != nil {
			return nil, err
		}
		elseNode, err := expandNode(v.ElseNode)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.IfNode, nn.ElseNode = ifNode, elseNode
		return &nn, nil
	case *ast.For:
		body, err := expandNode(v.Body)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Body = body
		return &nn, nil
	case *ast.While:
		body, err := expandNode(v.Body)
		if err != nil {
			return nil, err
		}
		nn := *v
		nn.Body = body
		return &nn, nil
	case *ast.Sample:
		dist, err := expandNode(v.Dist)
		if err != nil {
			return nil, err
		}
		if asIf, ok := dist.(*ast.If); ok {
			var elseNode ast.Node
			if asIf.ElseNode != nil {
				elseNode = &ast.Sample{Dist: asIf.ElseNode}
			}
			return &ast.If{Test: asIf.Test, IfNode: &ast.Sample{Dist: asIf.IfNode}, ElseNode: elseNode}, nil
		}
		nn := *v
		nn.Dist = dist
		return &nn, nil
	case *ast.Observe:
		dist, err := expandNode(v.Dist)
		if err != nil {
			return nil, err
		}
		value, err := expandNode(v.Value)
		if err != nil {
			return nil, err
		}
		if asIf, ok := dist.(*ast.If); ok {
			var elseNode ast.Node
			if asIf.ElseNode != nil {
				elseNode = &ast.Observe{Dist: asIf.ElseNode, Value: value}
			}
			return &ast.If{Test: asIf.Test, IfNode: &ast.Observe{Dist: asIf.IfNode, Value: value}, ElseNode: elseNode}, nil
		}
		nn := *v
		nn.Dist, nn.Value = dist, value
		return &nn, nil
	default:
		return n, nil
	}
}

func expandBinary(node *ast.Binary) (ast.Node, error) {
	left, err := expandNode(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := expandNode(node.Right)
	if err != nil {
		return nil, err
	}
	if asIf, ok := left.(*ast.If); ok {
		var elseNode ast.Node
		if asIf.ElseNode != nil {
			elseNode = &ast.Binary{Op: node.Op, Left: asIf.ElseNode, Right: right}
		}
		return &ast.If{Test: asIf.Test, IfNode: &ast.Binary{Op: node.Op, Left: asIf.IfNode, Right: right}, ElseNode: elseNode}, nil
	}
	if asIf, ok := right.(*ast.If); ok {
		var elseNode ast.Node
		if asIf.ElseNode != nil {
			elseNode = &ast.Binary{Op: node.Op, Left: left, Right: asIf.ElseNode}
		}
		return &ast.If{Test: asIf.Test, IfNode: &ast.Binary{Op: node.Op, Left: left, Right: asIf.IfNode}, ElseNode: elseNode}, nil
	}
	nn := *node
	nn.Left, nn.Right = left, right
	return &nn, nil
}

func expandUnary(node *ast.Unary) (ast.Node, error) {
	item, err := expandNode(node.Item)
	if err != nil {
		return nil, err
	}
	if asIf, ok := item.(*ast.If); ok {
		var elseNode ast.Node
		if asIf.ElseNode != nil {
			elseNode = &ast.Unary{Op: node.Op, Item: asIf.ElseNode}
		}
		return &ast.If{Test: asIf.Test, IfNode: &ast.Unary{Op: node.Op, Item: asIf.IfNode}, ElseNode: elseNode}, nil
	}
	nn := *node
	nn.Item = item
	return &nn, nil
}

// expandCall lifts the first argument found to be an If; both resulting
// calls are expanded again, so any further If arguments are lifted in turn.
func expandCall(node *ast.Call) (ast.Node, error) {
	args := make([]ast.Node, len(node.Args))
	for i, a := range node.Args {
		out, err := expandNode(a)
		if err != nil {
			return nil, err
		}
		args[i] = out
	}
	for i, a := range args {
		asIf, ok := a.(*ast.If)
		if !ok {
			continue
		}
		ifArgs := append(append([]ast.Node{}, args[:i]...), asIf.IfNode)
		ifArgs = append(ifArgs, args[i+1:]...)
		ifCall := &ast.Call{Function: node.Function, Args: ifArgs, KeywordArgs: node.KeywordArgs}
		var elseNode ast.Node
		if asIf.ElseNode != nil {
			elseArgs := append(append([]ast.Node{}, args[:i]...), asIf.ElseNode)
			elseArgs = append(elseArgs, args[i+1:]...)
			expanded, err := expandNode(&ast.Call{Function: node.Function, Args: elseArgs, KeywordArgs: node.KeywordArgs})
			if err != nil {
				return nil, err
			}
			elseNode = expanded
		}
		lifted, err := expandNode(ifCall)
		if err != nil {
			return nil, err
		}
		return &ast.If{Test: asIf.Test, IfNode: lifted, ElseNode: elseNode}, nil
	}
	nn := *node
	nn.Args = args
	return &nn, nil
}

func expandDef(node *ast.Def) (ast.Node, error) {
	value, err := expandNode(node.Value)
	if err != nil {
		return nil, err
	}
	nn := *node
	nn.Value = value
	return &nn, nil
}
