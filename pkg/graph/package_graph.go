package graph

import (
	"sort"

	"github.com/mamaar/saferename/pkg/types"
)

// PackageGraph holds the workspace's internal import relationships. A rename
// session walks it dependency-first so a package is only rewritten after
// every package it imports has reached its final renamed shape.
type PackageGraph struct {
	Nodes map[string]*PackageNode
	Edges map[string][]*PackageEdge
}

// PackageNode is one workspace package in the dependency graph.
type PackageNode struct {
	Path         string
	Package      *types.Package
	Dependencies []*PackageNode
	Dependents   []*PackageNode
}

// PackageEdge is one import relationship.
type PackageEdge struct {
	From *PackageNode
	To   *PackageNode
	Type EdgeType
}

type EdgeType int

const (
	PackageImportEdge EdgeType = iota
	TestEdge
)

// NewPackageGraph creates an empty package dependency graph.
func NewPackageGraph() *PackageGraph {
	return &PackageGraph{
		Nodes: make(map[string]*PackageNode),
		Edges: make(map[string][]*PackageEdge),
	}
}

// BuildPackageGraph indexes every package of the workspace and the import
// edges between them. Imports leaving the module are not represented; they
// can never be renamed.
func BuildPackageGraph(ws *types.Workspace) *PackageGraph {
	pg := NewPackageGraph()
	for _, pkg := range ws.Packages {
		pg.AddPackage(pkg)
	}
	for _, pkg := range ws.Packages {
		for _, importPath := range pkg.Imports {
			depPath, ok := ws.ImportToPath[importPath]
			if !ok {
				continue
			}
			pg.AddDependency(pkg.Path, depPath, PackageImportEdge)
		}
	}
	return pg
}

// AddPackage adds a package node to the graph.
func (pg *PackageGraph) AddPackage(pkg *types.Package) *PackageNode {
	if node, exists := pg.Nodes[pkg.Path]; exists {
		return node
	}
	node := &PackageNode{Path: pkg.Path, Package: pkg}
	pg.Nodes[pkg.Path] = node
	pg.Edges[pkg.Path] = nil
	return node
}

// AddDependency records that the package at from imports the package at to.
func (pg *PackageGraph) AddDependency(from, to string, edgeType EdgeType) {
	fromNode, fromExists := pg.Nodes[from]
	toNode, toExists := pg.Nodes[to]
	if !fromExists || !toExists || from == to {
		return
	}
	for _, edge := range pg.Edges[from] {
		if edge.To.Path == to && edge.Type == edgeType {
			return
		}
	}
	pg.Edges[from] = append(pg.Edges[from], &PackageEdge{From: fromNode, To: toNode, Type: edgeType})
	fromNode.Dependencies = append(fromNode.Dependencies, toNode)
	toNode.Dependents = append(toNode.Dependents, fromNode)
}

// GetDependencies returns the direct dependencies of a package.
func (pg *PackageGraph) GetDependencies(pkgPath string) []*PackageNode {
	if node, exists := pg.Nodes[pkgPath]; exists {
		return node.Dependencies
	}
	return nil
}

// GetDependents returns the packages that import the given package.
func (pg *PackageGraph) GetDependents(pkgPath string) []*PackageNode {
	if node, exists := pg.Nodes[pkgPath]; exists {
		return node.Dependents
	}
	return nil
}

// RenameOrder returns every package dependency-first: each package appears
// after all packages it imports. Ties are broken by path so the order is
// deterministic across runs.
func (pg *PackageGraph) RenameOrder() ([]*PackageNode, error) {
	paths := make([]string, 0, len(pg.Nodes))
	for p := range pg.Nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var result []*PackageNode
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(string) error
	visit = func(pkg string) error {
		if onStack[pkg] {
			return &types.RefactorError{
				Type:    types.CyclicDependency,
				Message: "import cycle through " + pkg,
			}
		}
		if visited[pkg] {
			return nil
		}
		visited[pkg] = true
		onStack[pkg] = true

		node := pg.Nodes[pkg]
		deps := make([]string, 0, len(node.Dependencies))
		for _, dep := range node.Dependencies {
			deps = append(deps, dep.Path)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		result = append(result, node)
		onStack[pkg] = false
		return nil
	}

	for _, pkg := range paths {
		if err := visit(pkg); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// TransitiveDependents returns every package that directly or indirectly
// imports the given package.
func (pg *PackageGraph) TransitiveDependents(pkgPath string) []*PackageNode {
	visited := make(map[string]bool)
	var result []*PackageNode

	var visit func(string)
	visit = func(pkg string) {
		node, exists := pg.Nodes[pkg]
		if !exists {
			return
		}
		for _, dep := range node.Dependents {
			if visited[dep.Path] {
				continue
			}
			visited[dep.Path] = true
			result = append(result, dep)
			visit(dep.Path)
		}
	}

	visit(pkgPath)
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}
