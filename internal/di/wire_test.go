package di

import (
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, name string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), name, nil, parser.ParseComments)
	require.NoError(t, err)
	return f
}

func buildSet(t *testing.T) []string {
	t.Helper()
	var out []string
	ast.Inspect(parseFile(t, "wire.go"), func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Build" {
			return true
		}
		for _, arg := range call.Args {
			if id, ok := arg.(*ast.Ident); ok {
				out = append(out, id.Name)
			}
		}
		return false
	})
	sort.Strings(out)
	return out
}

func generatedCalls(t *testing.T) []string {
	t.Helper()
	seen := map[string]bool{}
	ast.Inspect(parseFile(t, "wire_gen.go"), func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if id, ok := call.Fun.(*ast.Ident); ok && strings.HasPrefix(id.Name, "Provide") {
				seen[id.Name] = true
			}
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func TestGeneratedInjectorMatchesWireBuild(t *testing.T) {
	build := buildSet(t)
	require.NotEmpty(t, build)
	assert.Equal(t, build, generatedCalls(t))
}

func TestGeneratedInjectorHeader(t *testing.T) {
	f := parseFile(t, "wire_gen.go")
	require.NotEmpty(t, f.Comments)
	assert.Equal(t, "Code generated by Wire. DO NOT EDIT.", strings.TrimSpace(f.Comments[0].Text()))
}
