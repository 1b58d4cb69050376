// Package paths is the single place where job coordinates become file and
// directory names. Every function is pure: the builder, the tracker and the
// dispatcher agree on where artifacts live because they all ask the Namer.
package paths

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/campaigngrid/internal/coords"
)

// DefaultPrefix is the output file prefix used when none is configured.
const DefaultPrefix = "hist"

// Namer maps coordinates to names. It is a value type without I/O and may be
// shared by concurrent goroutines.
type Namer struct {
	OutputDir string
	JobHome   string
	TempDir   string
	Campaign  string
	// Prefix of every output file name, "hist" when empty.
	Prefix string
	// SubJobsAsInput makes merge inputs glob over sub-job outputs instead of
	// naming each one.
	SubJobsAsInput bool

	GridUser     string
	GridSuffix   string
	GridIDSuffix string
}

func (n Namer) prefix() string {
	if n.Prefix == "" {
		return DefaultPrefix
	}
	return n.Prefix
}

// clean joins the parts and collapses duplicate separators. Empty parts are
// dropped so that coordinates a stage does not use leave no trace.
func clean(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	joined := strings.Join(kept, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return joined
}

func jetDir(jetbin string) string {
	if jetbin == "" {
		return ""
	}
	return jetbin + "j"
}

// OutputDirectory is <OutputDir>/<stage>/<jet>j/<lep>/<syst>/.
func (n Namer) OutputDirectory(stage coords.Stage, jetbin string, ch coords.Channel, syst string) string {
	return clean(n.OutputDir, stage.String(), jetDir(jetbin), ch.String(), syst) + "/"
}

// stem is <prefix>_<jet>j_<lep>_<syst>_<sample> without sub-job suffix.
func (n Namer) stem(c coords.Coord) string {
	parts := []string{n.prefix()}
	if c.JetBin != "" {
		parts = append(parts, jetDir(c.JetBin))
	}
	parts = append(parts, c.Channel.String())
	if c.Systematic != "" {
		parts = append(parts, c.Systematic)
	}
	if c.Sample != "" {
		parts = append(parts, c.Sample)
	}
	return strings.Join(parts, "_")
}

// Stem returns the output file name without extension, including the
// sub-job suffix. Scripts, logs and packages of a leaf share it.
func (n Namer) Stem(c coords.Coord) string {
	s := n.stem(c)
	if c.SubJob > 0 {
		s += fmt.Sprintf(".%03d", c.SubJob)
	}
	return s
}

// OutputFileName is <prefix>_<jet>j_<lep>_<syst>_<sample>[.NNN].root.
func (n Namer) OutputFileName(c coords.Coord) string {
	return n.Stem(c) + ".root"
}

// OutputPath is the full path of the leaf's output file.
func (n Namer) OutputPath(c coords.Coord) string {
	return n.OutputDirectory(c.Stage, c.JetBin, c.Channel, c.Systematic) + n.OutputFileName(c)
}

// SubJobGlob matches every sub-job output of the sample at c. It is used as
// the single merge input when SubJobsAsInput is set.
func (n Namer) SubJobGlob(c coords.Coord) string {
	c.SubJob = 0
	return n.OutputDirectory(c.Stage, c.JetBin, c.Channel, c.Systematic) + "*" + n.stem(c) + ".*.root"
}

// JobDirectory is <JobHome>/<campaign>/<stage>/<jet>j/<lep>/<syst>/<sample>/[NNN/].
func (n Namer) JobDirectory(c coords.Coord) string {
	var sub string
	if c.SubJob > 0 {
		sub = fmt.Sprintf("%03d", c.SubJob)
	}
	return clean(n.JobHome, n.Campaign, c.Stage.String(), jetDir(c.JetBin), c.Channel.String(), c.Systematic, c.Sample, sub) + "/"
}

// LogPath is the job directory plus the output file name with .root
// replaced by .log.
func (n Namer) LogPath(c coords.Coord) string {
	return n.JobDirectory(c) + strings.TrimSuffix(n.OutputFileName(c), ".root") + ".log"
}

// ScriptPath is the generated run script of the leaf.
func (n Namer) ScriptPath(c coords.Coord) string {
	return n.JobDirectory(c) + n.Stem(c) + ".run"
}

// TempOutputPath is where the job writes before moving its output into place.
func (n Namer) TempOutputPath(c coords.Coord) string {
	return clean(n.TempDir, n.Campaign, n.OutputFileName(c))
}

// TempLogPath is where the job logs before moving the log into place.
func (n Namer) TempLogPath(c coords.Coord) string {
	return clean(n.TempDir, n.Campaign, n.Stem(c)+".log")
}

// NodeName is the canonical task name: <stage>/<jet>j/<lep>/<syst>/<sample>[/NNN].
func (n Namer) NodeName(c coords.Coord) string {
	var sub string
	if c.SubJob > 0 {
		sub = fmt.Sprintf("%03d", c.SubJob)
	}
	return clean(c.Stage.String(), jetDir(c.JetBin), c.Channel.String(), c.Systematic, c.Sample, sub)
}

// RecordPath is the file collecting commands that were prepared but not run.
func (n Namer) RecordPath(backend string) string {
	return clean(n.JobHome, n.Campaign, backend+"_commands.txt")
}

// ReportPath is the HCL report of one dispatch pass.
func (n Namer) ReportPath(passID string) string {
	return clean(n.JobHome, n.Campaign, "dispatch-"+passID+".hcl")
}

// GridID is <sample>_<syst><idsuffix>.
func (n Namer) GridID(c coords.Coord) string {
	id := c.Sample
	if c.Systematic != "" {
		id += "_" + c.Systematic
	}
	return id + n.GridIDSuffix
}

// GridDatasets returns the input and output dataset names of a grid job.
func (n Namer) GridDatasets(c coords.Coord) (in, out string) {
	id := n.GridID(c)
	in = fmt.Sprintf("user.%s.%s", n.GridUser, id)
	out = fmt.Sprintf("user.%s.%s.%s", n.GridUser, n.Campaign, id)
	if n.GridSuffix != "" {
		in += "." + n.GridSuffix
		out += "." + n.GridSuffix
	}
	return in, out
}

// InputSystematic is the variation whose input a job reads. Weight-only
// variations reuse the nominal input.
func InputSystematic(syst string, weightOnly bool) string {
	if weightOnly {
		return "nominal"
	}
	return syst
}
