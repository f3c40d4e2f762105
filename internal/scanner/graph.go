package scanner

import (
	"sort"

	"github.com/kofron/lattice/internal/metadata"
)

// Graph is the stack graph derived from tracked branches' parent pointers,
// rooted at trunk. It implements capability.Graph so gating and scope
// walking operate on it directly.
type Graph struct {
	Trunk    string
	parents  map[string]string   // branch -> parent branch name; absent for branches parented on trunk
	children map[string][]string // branch (or trunk) -> tracked children, sorted by name
}

// BuildGraph derives the stack graph from a branch->metadata map. It never
// returns an error: cycles and dangling parents are reported as issues by
// the caller (Scan, via Cycle and DanglingParents), not rejected here, so a corrupt graph is
// still inspectable by doctor.
func BuildGraph(trunk string, tracked map[string]*metadata.BranchMetadata) *Graph {
	g := &Graph{
		Trunk:    trunk,
		parents:  map[string]string{},
		children: map[string][]string{},
	}

	for name, md := range tracked {
		switch md.Parent.Kind {
		case metadata.ParentBranch:
			g.parents[name] = md.Parent.Name
			g.children[md.Parent.Name] = append(g.children[md.Parent.Name], name)
		case metadata.ParentTrunk:
			g.children[trunk] = append(g.children[trunk], name)
		}
	}

	for k := range g.children {
		sort.Strings(g.children[k])
	}
	return g
}

// Parent implements capability.Graph: ok=false at trunk (branch's parent is
// trunk itself, or branch is trunk, or branch is untracked).
func (g *Graph) Parent(branch string) (string, bool) {
	p, ok := g.parents[branch]
	return p, ok
}

// Children implements capability.Graph.
func (g *Graph) Children(branch string) []string {
	return g.children[branch]
}

// Cycle reports a cycle in the graph starting anywhere, as the ordered list
// of branches that form it, or nil if the graph is acyclic.
func (g *Graph) Cycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}

	var stack []string
	var walk func(branch string) []string
	walk = func(branch string) []string {
		color[branch] = gray
		stack = append(stack, branch)

		if parent, ok := g.parents[branch]; ok {
			switch color[parent] {
			case gray:
				// found the cycle: the portion of stack from parent's first
				// occurrence onward
				for i, b := range stack {
					if b == parent {
						cyc := append([]string{}, stack[i:]...)
						return append(cyc, parent)
					}
				}
			case white:
				if cyc := walk(parent); cyc != nil {
					return cyc
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[branch] = black
		return nil
	}

	names := make([]string, 0, len(g.parents))
	for name := range g.parents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if color[name] == white {
			if cyc := walk(name); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// DanglingParents returns, sorted, every branch whose declared parent is
// neither trunk nor another tracked branch.
func (g *Graph) DanglingParents(tracked map[string]*metadata.BranchMetadata) []string {
	var dangling []string
	for name, md := range tracked {
		if md.Parent.Kind != metadata.ParentBranch {
			continue
		}
		if _, ok := tracked[md.Parent.Name]; !ok {
			dangling = append(dangling, name)
		}
	}
	sort.Strings(dangling)
	return dangling
}
