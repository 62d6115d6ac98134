// Package graph constructs and levels the dependency DAG for a root
// package: discovering unresolved build requirements, checking hub
// availability, detecting cycles, and grouping nodes into parallel build
// levels. Nodes are stored in a flat map keyed by name — edges are names,
// never pointers — so the graph has no cyclic ownership and serializes
// trivially.
package graph

import (
	"context"
	"sort"
	"strings"

	"github.com/ssokkol/koji-vibebuild/internal/domain/specfile"
	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
)

// DependencyNode is one package in the dependency DAG.
type DependencyNode struct {
	Name         string
	ArchivePath  string // "" if none
	Info         *specfile.PackageInfo
	Dependencies map[string]struct{}
	IsAvailable  bool
	BuildOrder   int // -1 before assignment
}

// NewDependencyNode creates a node with BuildOrder unassigned.
func NewDependencyNode(name string) *DependencyNode {
	return &DependencyNode{
		Name:         name,
		Dependencies: make(map[string]struct{}),
		BuildOrder:   -1,
	}
}

// DependencyGraph maps package name to its node.
type DependencyGraph map[string]*DependencyNode

// ArchiveReader is the narrow capability graph construction needs to pull
// build requirements out of an already-downloaded archive.
type ArchiveReader interface {
	Requires(ctx context.Context, archivePath string) ([]string, error)
}

// Canonicalizer resolves a raw dependency token to a real package name.
type Canonicalizer interface {
	Canonicalize(token string) string
}

// HubAvailability checks whether a package name is already present in the
// hub's build tag, and what NVR it last built as.
type HubAvailability interface {
	Exists(ctx context.Context, name, tag string) (bool, error)
	ListTaggedBuilds(ctx context.Context, tag string) (map[string]string, error)
}

// ArchiveResolverFunc fetches a source archive for a package name, typically
// fetch.Fetcher.Fetch.
type ArchiveResolverFunc func(ctx context.Context, name string) (string, error)

// Resolver builds a DependencyGraph for a root package.
type Resolver struct {
	reader  ArchiveReader
	canon   Canonicalizer
	hub     HubAvailability
	buildTag string
}

// NewResolver constructs a Resolver.
func NewResolver(reader ArchiveReader, canon Canonicalizer, hub HubAvailability, buildTag string) *Resolver {
	return &Resolver{reader: reader, canon: canon, hub: hub, buildTag: buildTag}
}

type worklistEntry struct {
	name        string
	archivePath string
}

// BuildGraph constructs the dependency DAG for rootName/rootArchivePath.
// resolveArchive is invoked to obtain an archive for any unsatisfied
// dependency discovered along the way.
func (r *Resolver) BuildGraph(ctx context.Context, rootName, rootArchivePath string, resolveArchive ArchiveResolverFunc) (DependencyGraph, error) {
	g := make(DependencyGraph)
	root := NewDependencyNode(rootName)
	root.ArchivePath = rootArchivePath
	g[rootName] = root

	queue := []worklistEntry{{name: rootName, archivePath: rootArchivePath}}
	seen := map[string]bool{rootName: true}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		node := g[entry.name]
		if node.IsAvailable {
			continue
		}

		tokens, err := r.reader.Requires(ctx, entry.archivePath)
		if err != nil {
			return nil, err
		}

		for _, tok := range tokens {
			canonical := r.canon.Canonicalize(tok)
			depName := canonical

			satisfied, err := r.isSatisfied(ctx, canonical, tok)
			if err != nil {
				return nil, err
			}

			if satisfied {
				if _, exists := g[depName]; !exists {
					availNode := NewDependencyNode(depName)
					availNode.IsAvailable = true
					g[depName] = availNode
				}
				node.Dependencies[depName] = struct{}{}
				continue
			}

			if _, exists := g[depName]; !exists {
				depNode := NewDependencyNode(depName)
				archivePath, err := resolveArchive(ctx, depName)
				if err != nil {
					return nil, err
				}
				depNode.ArchivePath = archivePath
				g[depName] = depNode
			}

			node.Dependencies[depName] = struct{}{}

			if !seen[depName] {
				seen[depName] = true
				queue = append(queue, worklistEntry{name: depName, archivePath: g[depName].ArchivePath})
			}
		}
	}

	return g, nil
}

// CheckVersionConstraints cross-checks info's declared, version-constrained
// BuildRequires entries against what the hub tag last built. It returns the
// canonical names of any that are present in the tag but whose built
// version fails the declared constraint — callers typically log these as
// warnings rather than failing the build, since the hub is the ultimate
// arbiter of what actually gets pulled in at build time.
func (r *Resolver) CheckVersionConstraints(ctx context.Context, info specfile.PackageInfo, tag string) ([]string, error) {
	var unsatisfied []string

	var tagged map[string]string
	for _, req := range info.BuildRequires {
		if req.Operator == "" || req.Version == "" {
			continue
		}
		if tagged == nil {
			built, err := r.hub.ListTaggedBuilds(ctx, tag)
			if err != nil {
				return nil, err
			}
			tagged = built
		}

		canonical := r.canon.Canonicalize(req.Name)
		nvr, ok := tagged[canonical]
		if !ok {
			continue
		}
		actualVersion := nvrVersion(nvr)
		if actualVersion == "" {
			continue
		}
		if !req.Satisfies(actualVersion) {
			unsatisfied = append(unsatisfied, canonical)
		}
	}

	return unsatisfied, nil
}

// nvrVersion extracts the version component from a "name-version-release"
// NVR string; it assumes release never itself contains a hyphen, which
// holds for every build hub's dist-tag release convention.
func nvrVersion(nvr string) string {
	parts := strings.Split(nvr, "-")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

// isSatisfied implements the documented fallback precedence: the canonical
// name wins if present in the hub tag; otherwise the original pre-canonical
// token is retried; either hit marks the requirement satisfied.
func (r *Resolver) isSatisfied(ctx context.Context, canonical, original string) (bool, error) {
	ok, err := r.hub.Exists(ctx, canonical, r.buildTag)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	if original == canonical {
		return false, nil
	}
	return r.hub.Exists(ctx, original, r.buildTag)
}

// TopologicalSort runs Kahn's algorithm over the subgraph of unavailable
// nodes, breaking ties in lexicographic name order for determinism. It
// marks available nodes' BuildOrder untouched (they have none) and returns
// the ordered unavailable names, or a *vberrors.CircularDependencyError if
// nodes remain with nonzero in-degree.
func TopologicalSort(g DependencyGraph) ([]string, error) {
	inDegree := make(map[string]int)
	for name, node := range g {
		if node.IsAvailable {
			continue
		}
		if _, ok := inDegree[name]; !ok {
			inDegree[name] = 0
		}
	}
	for name, node := range g {
		if node.IsAvailable {
			continue
		}
		for dep := range node.Dependencies {
			if g[dep].IsAvailable {
				continue
			}
			inDegree[name]++
		}
	}

	var order []string
	remaining := make(map[string]bool, len(inDegree))
	for name := range inDegree {
		remaining[name] = true
	}

	for len(remaining) > 0 {
		var ready []string
		for name := range remaining {
			if inDegree[name] == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			break
		}
		sort.Strings(ready)

		for _, name := range ready {
			order = append(order, name)
			delete(remaining, name)
			for other := range remaining {
				if _, dep := g[other].Dependencies[name]; dep {
					inDegree[other]--
				}
			}
		}
	}

	if len(remaining) > 0 {
		cycle := make([]string, 0, len(remaining))
		for name := range remaining {
			cycle = append(cycle, name)
		}
		sort.Strings(cycle)
		return nil, vberrors.NewCircularDependencyError(cycle)
	}

	return order, nil
}

// AssignBuildOrder sets BuildOrder = 1 + max(BuildOrder of unavailable
// deps), or 0 if a node has none, for every name in topological order.
func AssignBuildOrder(g DependencyGraph, order []string) {
	for _, name := range order {
		node := g[name]
		maxDep := -1
		for dep := range node.Dependencies {
			depNode := g[dep]
			if depNode.IsAvailable {
				continue
			}
			if depNode.BuildOrder > maxDep {
				maxDep = depNode.BuildOrder
			}
		}
		node.BuildOrder = maxDep + 1
	}
}

// BuildChain groups nodes by BuildOrder into ordered levels; level i holds
// every node with BuildOrder == i. The root is necessarily the last,
// singleton level.
func BuildChain(g DependencyGraph, order []string) [][]string {
	levels := make(map[int][]string)
	maxLevel := -1
	for _, name := range order {
		lvl := g[name].BuildOrder
		levels[lvl] = append(levels[lvl], name)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	chain := make([][]string, maxLevel+1)
	for lvl := 0; lvl <= maxLevel; lvl++ {
		names := levels[lvl]
		sort.Strings(names)
		chain[lvl] = names
	}
	return chain
}
