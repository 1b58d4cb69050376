package dispatch

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Placeholder names a run template may reference.
var placeholderNames = []string{
	"input_files", "input_list", "output_file", "sub_job", "sub_jobs",
	"sample", "systematic", "input_systematic", "jet_bin", "channel", "stage", "xsec",
}

var templateFunctions = map[string]function.Function{
	"join":    stdlib.JoinFunc,
	"upper":   stdlib.UpperFunc,
	"lower":   stdlib.LowerFunc,
	"replace": stdlib.ReplaceFunc,
	"format":  stdlib.FormatFunc,
}

// Placeholders are the per-leaf values substituted into the run template.
type Placeholders struct {
	InputFiles      []string
	OutputFile      string
	SubJob          int
	SubJobs         int
	Sample          string
	Systematic      string
	InputSystematic string
	JetBin          string
	Channel         string
	Stage           string
	XSection        float64
}

func (p Placeholders) variables() map[string]cty.Value {
	list := cty.ListValEmpty(cty.String)
	if len(p.InputFiles) > 0 {
		vals := make([]cty.Value, len(p.InputFiles))
		for i, f := range p.InputFiles {
			vals[i] = cty.StringVal(f)
		}
		list = cty.ListVal(vals)
	}
	return map[string]cty.Value{
		"input_files":      cty.StringVal(strings.Join(p.InputFiles, ",")),
		"input_list":       list,
		"output_file":      cty.StringVal(p.OutputFile),
		"sub_job":          cty.NumberIntVal(int64(p.SubJob)),
		"sub_jobs":         cty.NumberIntVal(int64(p.SubJobs)),
		"sample":           cty.StringVal(p.Sample),
		"systematic":       cty.StringVal(p.Systematic),
		"input_systematic": cty.StringVal(p.InputSystematic),
		"jet_bin":          cty.StringVal(p.JetBin),
		"channel":          cty.StringVal(p.Channel),
		"stage":            cty.StringVal(p.Stage),
		"xsec":             cty.NumberFloatVal(p.XSection),
	}
}

// RunTemplate is the user's run command with ${...} placeholders, written
// in HCL template syntax. A literal dollar-brace is escaped as $${.
type RunTemplate struct {
	name string
	expr hclsyntax.Expression
}

// ParseRunTemplate parses src and rejects unknown placeholders, so a typo is
// a planning error instead of a failure in every job.
func ParseRunTemplate(name string, src []byte) (*RunTemplate, error) {
	expr, diags := hclsyntax.ParseTemplate(src, name, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse run template %s: %w", name, diags)
	}
	for _, tr := range expr.Variables() {
		root := tr.RootName()
		if !slices.Contains(placeholderNames, root) {
			rng := tr.SourceRange()
			return nil, fmt.Errorf("run template %s:%d: unknown placeholder %q, known placeholders are %s",
				name, rng.Start.Line, root, strings.Join(placeholderNames, ", "))
		}
	}
	return &RunTemplate{name: name, expr: expr}, nil
}

// LoadRunTemplate reads and parses a run template file.
func LoadRunTemplate(path string) (*RunTemplate, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run template: %w", err)
	}
	return ParseRunTemplate(path, src)
}

// Render substitutes the placeholders.
func (t *RunTemplate) Render(p Placeholders) (string, error) {
	ctx := &hcl.EvalContext{
		Variables: p.variables(),
		Functions: templateFunctions,
	}
	val, diags := t.expr.Value(ctx)
	if diags.HasErrors() {
		return "", fmt.Errorf("failed to render run template %s: %w", t.name, diags)
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("run template %s does not render to a string: %w", t.name, err)
	}
	if val.IsNull() {
		return "", fmt.Errorf("run template %s rendered null", t.name)
	}
	return strings.TrimSpace(val.AsString()), nil
}
