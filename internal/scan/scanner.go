// Package scan walks a source tree and produces the structural snapshot the
// analyzer consumes. Parsing is tree-sitter based; one parser per language.
// The scanner also partitions types into aggregate clusters by package
// directory and records which cluster members are referenced from outside
// their cluster.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/logging"
)

// Parser extracts type descriptors from one language's source files.
type Parser interface {
	Language() string
	SupportedExtensions() []string
	Parse(path string, content []byte) ([]descriptor.TypeDescriptor, error)
}

// Scanner discovers types under a root directory.
type Scanner struct {
	parsers  []Parser
	excludes []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExcludes adds directory names to skip while walking.
func WithExcludes(names ...string) Option {
	return func(s *Scanner) { s.excludes = append(s.excludes, names...) }
}

// WithParsers replaces the default parser set.
func WithParsers(parsers ...Parser) Option {
	return func(s *Scanner) { s.parsers = parsers }
}

// defaultExcludes are directory names never worth scanning.
var defaultExcludes = []string{".git", "node_modules", "vendor", "__pycache__", ".venv", "venv", "dist", "build"}

// New creates a scanner with Go and Python parsers.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		parsers:  []Parser{NewGoParser(), NewPythonParser()},
		excludes: append([]string(nil), defaultExcludes...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scannedFile keeps what the reference pass needs after parsing.
type scannedFile struct {
	path    string
	pkg     string
	content []byte
}

// Scan walks root and returns the snapshot. WalkDir visits entries in
// lexical order and parsers emit types in source order, so discovery order
// is stable across runs; the report's tie-breaks depend on that.
func (s *Scanner) Scan(ctx context.Context, root string) (*descriptor.Snapshot, error) {
	timer := logging.StartTimer(logging.CategoryScan, "Scan")
	defer timer.Stop()

	byExt := make(map[string]Parser)
	for _, p := range s.parsers {
		for _, ext := range p.SupportedExtensions() {
			byExt[ext] = p
		}
	}

	var (
		snapshot descriptor.Snapshot
		files    []scannedFile
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			for _, ex := range s.excludes {
				if name == ex {
					return filepath.SkipDir
				}
			}
			return nil
		}
		parser, ok := byExt[filepath.Ext(path)]
		if !ok {
			return nil
		}

		content, rerr := os.ReadFile(path)
		if rerr != nil {
			// An unreadable file is skipped the same way an unparsable one is.
			logging.Get(logging.CategoryScan).Warn("skipping %s: %v", path, rerr)
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		pkg := packageOf(rel)

		types, perr := parser.Parse(rel, content)
		if perr != nil {
			// A single unparsable file never aborts the scan.
			logging.Get(logging.CategoryScan).Warn("skipping %s: %v", rel, perr)
			return nil
		}
		for i := range types {
			if types[i].Package == "" {
				types[i].Package = pkg
			}
			types[i].File = rel
		}
		snapshot.Types = append(snapshot.Types, types...)
		files = append(files, scannedFile{path: rel, pkg: pkg, content: content})

		logging.ScanDebug("parsed %s: %d types", rel, len(types))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.resolveRepositoryTargets(&snapshot)
	snapshot.Clusters = s.buildClusters(&snapshot, files)

	logging.Scan("scanned %s: %d types in %d clusters", root, len(snapshot.Types), len(snapshot.Clusters))
	return &snapshot, nil
}

// packageOf derives the package identifier from a relative file path: the
// directory path, or the file stem at the tree root.
func packageOf(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		return "(root)"
	}
	return dir
}

// resolveRepositoryTargets fills in TargetType for repository-shaped types
// that did not declare one: the name minus its Repository suffix.
func (s *Scanner) resolveRepositoryTargets(snapshot *descriptor.Snapshot) {
	for i := range snapshot.Types {
		t := &snapshot.Types[i]
		if t.TargetType != "" || !strings.HasSuffix(t.Name, "Repository") {
			continue
		}
		target := strings.TrimSuffix(t.Name, "Repository")
		if target != "" {
			t.TargetType = target
		}
	}
}

// buildClusters partitions types into aggregate clusters by package
// directory, designates each cluster's root and records external references.
// Repository ports are not cluster members: they are the boundary through
// which clusters are reached.
func (s *Scanner) buildClusters(snapshot *descriptor.Snapshot, files []scannedFile) []descriptor.Cluster {
	byPkg := make(map[string][]string)
	var pkgOrder []string
	for i := range snapshot.Types {
		t := &snapshot.Types[i]
		if strings.HasSuffix(t.Name, "Repository") {
			continue
		}
		if _, seen := byPkg[t.Package]; !seen {
			pkgOrder = append(pkgOrder, t.Package)
		}
		byPkg[t.Package] = append(byPkg[t.Package], t.Name)
	}

	// Repository targets designate roots.
	repoTargets := make(map[string]bool)
	for i := range snapshot.Types {
		if target := snapshot.Types[i].TargetType; target != "" {
			repoTargets[target] = true
		}
	}

	var clusters []descriptor.Cluster
	for _, pkg := range pkgOrder {
		members := byPkg[pkg]
		cluster := descriptor.Cluster{Name: pkg, Types: members}
		cluster.Root = s.pickRoot(snapshot, members, repoTargets)
		cluster.ExternallyReferenced = s.externalReferences(pkg, members, files)
		clusters = append(clusters, cluster)
	}
	return clusters
}

// pickRoot chooses the cluster root: a repository target if one is a member,
// otherwise the sole identity-bearing member.
func (s *Scanner) pickRoot(snapshot *descriptor.Snapshot, members []string, repoTargets map[string]bool) string {
	for _, name := range members {
		if repoTargets[name] {
			return name
		}
	}
	var withIdentity []string
	for _, name := range members {
		if t, ok := snapshot.TypeByName(name); ok {
			if _, has := t.IdentityField(); has {
				withIdentity = append(withIdentity, name)
			}
		}
	}
	if len(withIdentity) == 1 {
		return withIdentity[0]
	}
	return ""
}

// externalReferences returns the members mentioned by files outside the
// cluster's package, sorted for stable output.
func (s *Scanner) externalReferences(pkg string, members []string, files []scannedFile) []string {
	referenced := make(map[string]bool)
	for _, name := range members {
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.pkg == pkg {
				continue
			}
			if pattern.Match(f.content) {
				referenced[name] = true
				break
			}
		}
	}
	var out []string
	for name := range referenced {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
