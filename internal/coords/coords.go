// Package coords defines the coordinate vocabulary shared by the builder, the
// namer, the tracker and the dispatcher: build stages, lepton channels and the
// coordinate tuple that identifies one unit of planned work.
package coords

import (
	"fmt"
	"strings"
)

// Stage is a build stage. The numeric order is the dependency order in which
// stages are built and dispatched.
type Stage int

const (
	HforSplitting Stage = iota
	Analysis
	Merging
	Plotting
	MemTkAnalysis
	MemDiscAnalysis
	HistFactory
)

// Stages lists every stage in dependency order.
var Stages = []Stage{HforSplitting, Analysis, Merging, Plotting, MemTkAnalysis, MemDiscAnalysis, HistFactory}

var stageNames = map[Stage]string{
	HforSplitting:   "hfor",
	Analysis:        "analysis",
	Merging:         "merging",
	Plotting:        "plotting",
	MemTkAnalysis:   "memtk",
	MemDiscAnalysis: "memdisc",
	HistFactory:     "histfactory",
}

var stageTitles = map[Stage]string{
	HforSplitting:   "HFOR Splitting",
	Analysis:        "Analysis",
	Merging:         "Merging",
	Plotting:        "Plotting",
	MemTkAnalysis:   "MemTk Analysis",
	MemDiscAnalysis: "MemDisc Analysis",
	HistFactory:     "HistFactory",
}

// String returns the short stage name used in paths and node names.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Title returns the human readable folder title of the stage.
func (s Stage) Title() string {
	if title, ok := stageTitles[s]; ok {
		return title
	}
	return s.String()
}

// UsesJetBins reports whether the stage is split by jet multiplicity.
// HFOR splitting rewrites whole samples and is jet independent.
func (s Stage) UsesJetBins() bool {
	return s != HforSplitting
}

// ParseStage resolves a stage from its short name.
func ParseStage(name string) (Stage, error) {
	for st, n := range stageNames {
		if n == strings.ToLower(name) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown build stage %q", name)
}

// Channel is a lepton channel.
type Channel int

const (
	Electron Channel = iota
	Muon
	Lepton // electron and muon merged
)

var channelLabels = [...]string{"enu", "munu", "lnu"}

// String returns the channel label ("enu", "munu", "lnu").
func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelLabels) {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelLabels[c]
}

// ParseChannel resolves a channel from its label. "e" and "mu" are accepted
// as short forms.
func ParseChannel(label string) (Channel, error) {
	switch strings.ToLower(label) {
	case "enu", "e", "electron":
		return Electron, nil
	case "munu", "mu", "muon":
		return Muon, nil
	case "lnu", "l", "lepton":
		return Lepton, nil
	}
	return 0, fmt.Errorf("unknown lepton channel %q", label)
}

// Coord identifies one unit of planned work. Empty string fields and a zero
// SubJob mean "not split along this axis".
type Coord struct {
	Stage      Stage
	JetBin     string
	Channel    Channel
	Systematic string
	Sample     string
	// SubJob is 1..SubJobs for split analysis jobs and 0 otherwise.
	SubJob  int
	SubJobs int
}

// String renders the coordinate for error messages and logs.
func (c Coord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage=%s", c.Stage)
	if c.JetBin != "" {
		fmt.Fprintf(&b, " jetbin=%s", c.JetBin)
	}
	fmt.Fprintf(&b, " channel=%s", c.Channel)
	if c.Systematic != "" {
		fmt.Fprintf(&b, " systematic=%s", c.Systematic)
	}
	if c.Sample != "" {
		fmt.Fprintf(&b, " sample=%s", c.Sample)
	}
	if c.SubJob > 0 {
		fmt.Fprintf(&b, " subjob=%d/%d", c.SubJob, c.SubJobs)
	}
	return b.String()
}
