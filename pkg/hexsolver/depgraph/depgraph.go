// Package depgraph is a minimal read-only directed-adjacency-list
// graph, grounded on original_source/TestDependencyGraph.cpp's module
// dependency graph, favoring a small adjacency-list type over pulling
// in a general graph library for a structure this narrow. No other
// package in this module imports it: pkg/hexsolver/mlp's loop
// detection and stratification scan work without a materialized graph.
package depgraph

import "github.com/hexsolve/hexsolve/pkg/hexsolver/rewrite"

// Graph is a directed graph over module instances: an edge i -> j means
// instance i's rewritten program contains a module-atom occurrence
// calling instance j.
type Graph struct {
	edges map[rewrite.InstanceID][]rewrite.InstanceID
}

// New returns an empty graph.
func New() *Graph { return &Graph{edges: make(map[rewrite.InstanceID][]rewrite.InstanceID)} }

// AddEdge records that from calls to.
func (g *Graph) AddEdge(from, to rewrite.InstanceID) {
	g.edges[from] = append(g.edges[from], to)
}

// Successors returns the instances a given instance calls directly.
func (g *Graph) Successors(id rewrite.InstanceID) []rewrite.InstanceID { return g.edges[id] }

// ReachableFrom returns every instance reachable from start, including
// start itself, via a plain breadth-first walk.
func (g *Graph) ReachableFrom(start rewrite.InstanceID) []rewrite.InstanceID {
	seen := map[rewrite.InstanceID]bool{start: true}
	queue := []rewrite.InstanceID{start}
	order := []rewrite.InstanceID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			order = append(order, next)
		}
	}
	return order
}

// HasCycle reports whether any instance reachable from start can reach
// itself again, used to explain (not detect -- that is mlp's path
// stack's job at solve time) a reported module call cycle.
func (g *Graph) HasCycle(start rewrite.InstanceID) bool {
	visiting := make(map[rewrite.InstanceID]bool)
	visited := make(map[rewrite.InstanceID]bool)
	var dfs func(rewrite.InstanceID) bool
	dfs = func(n rewrite.InstanceID) bool {
		if visiting[n] {
			return true
		}
		if visited[n] {
			return false
		}
		visiting[n] = true
		for _, next := range g.edges[n] {
			if dfs(next) {
				return true
			}
		}
		visiting[n] = false
		visited[n] = true
		return false
	}
	return dfs(start)
}
