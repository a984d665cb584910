// Command nogo reports raw go statements. seam fans out with
// errgroup.Group so that every goroutine's error and cancellation reaches
// the caller.
package main

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

var Analyzer = &analysis.Analyzer{
	Name: "nogo",
	Doc:  "forbids raw go statements; use errgroup.Group.Go",
	Run:  run,
}

// allow lists package path fragments exempt from the check.
var allow string

func init() {
	Analyzer.Flags.StringVar(&allow, "allow", "", "comma-separated package path fragments where raw go statements are allowed")
}

func main() {
	singlechecker.Main(Analyzer)
}

func allowed(path string) bool {
	for _, fragment := range strings.Split(allow, ",") {
		fragment = strings.TrimSpace(fragment)
		if fragment != "" && strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func run(pass *analysis.Pass) (interface{}, error) {
	if allowed(pass.Pkg.Path()) {
		return nil, nil
	}

	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			if goStmt, ok := n.(*ast.GoStmt); ok {
				pass.Reportf(goStmt.Pos(),
					"raw 'go' statement forbidden - use errgroup.Group.Go")
			}
			return true
		})
	}
	return nil, nil
}
