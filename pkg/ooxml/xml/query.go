package xml

import (
	"fmt"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var (
	exprMu    sync.RWMutex
	exprCache = make(map[string]*xpath.Expr)
)

// Compile compiles expr with the prefixes in Namespaces bound. Compiled
// expressions are cached for the life of the process.
func Compile(expr string) (*xpath.Expr, error) {
	exprMu.RLock()
	compiled, ok := exprCache[expr]
	exprMu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := xpath.CompileWithNS(expr, Namespaces)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}

	exprMu.Lock()
	exprCache[expr] = compiled
	exprMu.Unlock()
	return compiled, nil
}

// Find returns every node under top matching expr in document order.
func Find(top *Node, expr string) ([]*Node, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelectorAll(top, compiled), nil
}

// FindOne returns the first node under top matching expr, or nil.
func FindOne(top *Node, expr string) (*Node, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelector(top, compiled), nil
}

// MustFind is Find for expressions known to compile.
func MustFind(top *Node, expr string) []*Node {
	nodes, err := Find(top, expr)
	if err != nil {
		panic(err)
	}
	return nodes
}
