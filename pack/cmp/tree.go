package cmp

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrHierarchy = errors.New("invalid construct hierarchy")

type Node struct {
	Name      string
	Construct *Construct // nil for the root
	Parent    *Node
	Children  []*Node
}

// Tree is a resolved construct hierarchy. Names are unique ignoring case.
type Tree struct {
	Root  *Node
	nodes map[string]*Node
}

func nameKey(name string) string { return strings.ToLower(name) }

func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Find(name string) *Node { return t.nodes[nameKey(name)] }

// Walk visits nodes depth first, parents before children, children in input order.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.Root, 0)
}

// Constructs lists the constructs of all non root nodes, parents first.
func (t *Tree) Constructs() []*Construct {
	result := make([]*Construct, 0, len(t.nodes)-1)
	t.Walk(func(n *Node, depth int) error {
		if n.Construct != nil {
			result = append(result, n.Construct)
		}
		return nil
	})
	return result
}

const (
	visitNone = iota
	visitActive
	visitDone
)

// BuildTree resolves an unordered construct list into a tree rooted at root.
// When root is empty it is inferred as the only parent name that is never a
// child. The result has len(constructs)+1 nodes.
func BuildTree(root string, constructs []*Construct) (*Tree, error) {
	byChild := make(map[string]*Construct, len(constructs))
	for _, c := range constructs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		key := nameKey(c.Child)
		if prev, ok := byChild[key]; ok {
			return nil, errors.Wrapf(ErrHierarchy, "part %q is attached twice (to %q and %q)",
				c.Child, prev.Parent, c.Parent)
		}
		byChild[key] = c
	}

	if root == "" {
		var err error
		if root, err = inferRoot(constructs, byChild); err != nil {
			return nil, err
		}
	}
	rootKey := nameKey(root)
	if c, ok := byChild[rootKey]; ok {
		return nil, errors.Wrapf(ErrHierarchy, "root %q is attached to parent %q", root, c.Parent)
	}

	for _, c := range constructs {
		parentKey := nameKey(c.Parent)
		if _, ok := byChild[parentKey]; !ok && parentKey != rootKey {
			return nil, errors.Wrapf(ErrHierarchy, "part %q references unknown parent %q", c.Child, c.Parent)
		}
	}

	state := make(map[string]int, len(constructs))
	for _, c := range constructs {
		if err := checkCycle(nameKey(c.Child), byChild, state); err != nil {
			return nil, err
		}
	}

	t := &Tree{
		Root:  &Node{Name: root},
		nodes: make(map[string]*Node, len(constructs)+1),
	}
	t.nodes[rootKey] = t.Root
	for _, c := range constructs {
		t.nodes[nameKey(c.Child)] = &Node{Name: c.Child, Construct: c}
	}
	for _, c := range constructs {
		node := t.nodes[nameKey(c.Child)]
		parent := t.nodes[nameKey(c.Parent)]
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	}
	return t, nil
}

func inferRoot(constructs []*Construct, byChild map[string]*Construct) (string, error) {
	roots := make(map[string]string)
	for _, c := range constructs {
		key := nameKey(c.Parent)
		if _, ok := byChild[key]; ok {
			continue
		}
		if _, ok := roots[key]; !ok {
			roots[key] = c.Parent
		}
	}
	switch len(roots) {
	case 0:
		if len(constructs) == 0 {
			return "", errors.Wrap(ErrHierarchy, "no root part")
		}
		return "", errors.Wrap(ErrHierarchy, "no root part, every part has a parent (cyclic hierarchy)")
	case 1:
		for _, name := range roots {
			return name, nil
		}
	}
	names := make([]string, 0, len(roots))
	for _, name := range roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return "", errors.Wrapf(ErrHierarchy, "multiple root parts %q", names)
}

func checkCycle(key string, byChild map[string]*Construct, state map[string]int) error {
	switch state[key] {
	case visitDone:
		return nil
	case visitActive:
		return errors.Wrapf(ErrHierarchy, "cyclic hierarchy through part %q", byChild[key].Child)
	}
	c, ok := byChild[key]
	if !ok {
		return nil
	}
	state[key] = visitActive
	if err := checkCycle(nameKey(c.Parent), byChild, state); err != nil {
		return err
	}
	state[key] = visitDone
	return nil
}
