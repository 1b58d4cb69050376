package dispatch

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"text/template"
)

// scriptData feeds the run script templates.
type scriptData struct {
	Leaf       string
	Command    string
	Env        []envVar
	TempOutput string
	TempLog    string
	Output     string
	Log        string
	JobDir     string
	// Grid only.
	Setup     string
	InputList string
	// VariationToken is set for template jobs: the script replaces it with
	// the variation given as its first argument.
	VariationToken string
	InputToken     string
}

type envVar struct{ Name, Value string }

func sortedEnv(env map[string]string) []envVar {
	out := make([]envVar, 0, len(env))
	for k, v := range env {
		out = append(out, envVar{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var scriptFuncs = template.FuncMap{
	"quote": shellQuote,
	"dir":   filepath.Dir,
}

// The job writes output and log to the temp area and moves them into place
// only at the end, so a half-written file never looks complete.
var localScript = template.Must(template.New("local").Funcs(scriptFuncs).Parse(`#!/bin/sh
# Generated run script for {{.Leaf}}. DO NOT EDIT.
{{- range .Env}}
export {{.Name}}={{quote .Value}}
{{- end}}
mkdir -p {{quote (dir .TempOutput)}} {{quote (dir .TempLog)}} {{quote (dir .Output)}} {{quote (dir .Log)}}
cd {{quote .JobDir}} || exit 1
rm -f {{quote .TempOutput}} {{quote .TempLog}}
{
{{.Command}}
} > {{quote .TempLog}} 2>&1
status=$?
mv -f {{quote .TempLog}} {{quote .Log}}
if [ -s {{quote .TempOutput}} ]; then
  mv -f {{quote .TempOutput}} {{quote .Output}}
  chmod g+w {{quote .Output}}
fi
chmod g+w {{quote .Log}}
exit $status
`))

// The grid wrapper receives its input files in input.txt and replaces the
// input token of the command with the comma-joined list. The variation is
// substituted first so that input file names are never rewritten.
var gridScript = template.Must(template.New("grid").Funcs(scriptFuncs).Parse(`#!/bin/sh
# Generated grid script for {{.Leaf}}. DO NOT EDIT.
{{- if .Setup}}
. {{quote .Setup}}
{{- end}}
{{- range .Env}}
export {{.Name}}={{quote .Value}}
{{- end}}
inputs=$(tr '\n' ',' < {{quote .InputList}} | sed 's/,$//')
cmd={{quote .Command}}
{{- if .VariationToken}}
syst=${1:-{{.VariationToken}}}
cmd=$(printf '%s\n' "$cmd" | sed "s|{{.VariationToken}}|${syst}|g")
{{- end}}
cmd=$(printf '%s\n' "$cmd" | sed "s|{{.InputToken}}|${inputs}|g")
eval "$cmd"
`))

func renderScript(t *template.Template, d scriptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render %s script for %s: %w", t.Name(), d.Leaf, err)
	}
	return buf.Bytes(), nil
}
