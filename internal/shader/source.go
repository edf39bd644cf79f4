// Package shader composes WGSL programs from typed binding declarations,
// compiles them with naga and wraps them in hal pipelines.
//
// A program's bindings are declared once as Binding values. The WGSL
// declarations and the bind group layout are both derived from them, so a
// shader cannot disagree with the layout it is linked against.
package shader

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrEmptySource is returned when a Source has no entry point body.
var ErrEmptySource = errors.New("shader: empty source")

// Field is one member of a WGSL struct.
type Field struct {
	// Attr is an optional attribute such as "@location(0)".
	Attr string
	Name string
	Type string
}

// Struct is a WGSL struct declaration.
type Struct struct {
	Name   string
	Fields []Field
}

// Source is a WGSL module: structs, bindings and the text of its functions
// and entry points.
type Source struct {
	Structs  []Struct
	Bindings []Binding
	Body     string
}

var moduleTemplate = template.Must(template.New("module").Parse(
	`{{range .Structs}}struct {{.Name}} {
{{range .Fields}}    {{if .Attr}}{{.Attr}} {{end}}{{.Name}}: {{.Type}},
{{end}}}

{{end}}{{range .Decls}}{{.}}
{{end}}
{{.Body}}
`))

// WGSL renders the module text.
func (s Source) WGSL() (string, error) {
	if strings.TrimSpace(s.Body) == "" {
		return "", ErrEmptySource
	}
	seen := make(map[uint32]string, len(s.Bindings))
	decls := make([]string, 0, len(s.Bindings))
	for _, b := range s.Bindings {
		if prev, ok := seen[b.Binding]; ok {
			return "", fmt.Errorf("binding %d declared twice (%s, %s)", b.Binding, prev, b.Name)
		}
		seen[b.Binding] = b.Name
		decl, err := b.WGSL()
		if err != nil {
			return "", err
		}
		decls = append(decls, decl)
	}
	for _, st := range s.Structs {
		if st.Name == "" || len(st.Fields) == 0 {
			return "", fmt.Errorf("struct %q: needs a name and at least one field", st.Name)
		}
	}

	var sb strings.Builder
	err := moduleTemplate.Execute(&sb, struct {
		Structs []Struct
		Decls   []string
		Body    string
	}{s.Structs, decls, strings.TrimSpace(s.Body)})
	if err != nil {
		return "", fmt.Errorf("render module: %w", err)
	}
	return sb.String(), nil
}

var computeTemplate = template.Must(template.New("compute").Parse(
	`@compute @workgroup_size({{index .Size 0}}, {{index .Size 1}}, {{index .Size 2}})
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
{{range .Stmts}}    {{.}}
{{end}}}
`))

// ComputeMain returns a compute entry point named "main" with the given
// workgroup size whose body is stmts, one per line. The global invocation
// id is available as gid.
func ComputeMain(size [3]uint32, stmts ...string) string {
	for i := range size {
		if size[i] == 0 {
			size[i] = 1
		}
	}
	var sb strings.Builder
	// The template only indexes a fixed-size array; it cannot fail.
	_ = computeTemplate.Execute(&sb, struct {
		Size  [3]uint32
		Stmts []string
	}{size, stmts})
	return sb.String()
}
