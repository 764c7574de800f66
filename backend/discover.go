package backend

import (
	"path/filepath"
	"sort"
	"strings"

	gcw "github.com/boyter/gocodewalker"
)

// walkFiles returns every file beneath root whose name matches one of the
// given suffixes (e.g. ".sln", ".csproj", ".cs"), sorted for determinism.
// It reuses gocodewalker's gitignore-aware tree walker rather than
// hand-rolling filepath.Walk, so a solution checked out with a vendored
// packages/ or bin/ directory doesn't get scanned.
func walkFiles(root string, suffixes ...string) ([]string, error) {
	fileListQueue := make(chan *gcw.File, 128)
	walker := gcw.NewFileWalker(root, fileListQueue)
	walker.IgnoreGitIgnore = false

	errs := make(chan error, 1)
	go func() { errs <- walker.Start() }()

	var matches []string
	for f := range fileListQueue {
		for _, suf := range suffixes {
			if strings.EqualFold(filepath.Ext(f.Location), suf) {
				matches = append(matches, f.Location)
				break
			}
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// discoverSolution implements the initialize-time fallback from §4.G: when
// no solution path is configured, scan dir for a .sln file; absent that,
// fall back to every .csproj found under dir, each becoming its own
// project.
func discoverSolution(dir string) (slnPath string, csprojPaths []string, err error) {
	slns, err := walkFiles(dir, ".sln")
	if err != nil {
		return "", nil, err
	}
	if len(slns) > 0 {
		return slns[0], nil, nil
	}
	projs, err := walkFiles(dir, ".csproj")
	if err != nil {
		return "", nil, err
	}
	return "", projs, nil
}

// sourceFilesFor lists the *.cs files belonging to the project rooted at
// projDir (the .csproj's own directory and everything beneath it).
func sourceFilesFor(projDir string) ([]string, error) {
	return walkFiles(projDir, ".cs")
}
