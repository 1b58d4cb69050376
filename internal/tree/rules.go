package tree

import (
	"strings"

	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
)

// candidate is one (stage, channel, variation, sample) combination the
// builder considers for a leaf.
type candidate struct {
	stage     coords.Stage
	channel   coords.Channel
	variation systematics.Variation
	sample    *samples.Sample
	// ignored is the catalog's verdict for the sample in this stage.
	ignored bool
}

// SkipRule is a named domain rule under which a combination is left out of
// the tree silently. Every silent omission the builder performs is one of
// these rules; anything else that cannot be built is a fatal error.
type SkipRule struct {
	Name    string
	Summary string
	applies func(c candidate) bool
}

// skipRules is evaluated in order; the first matching rule names the skip.
var skipRules = []SkipRule{
	{
		Name:    "ignored-sample",
		Summary: "the catalog's ignore policy excludes the sample",
		applies: func(c candidate) bool { return c.ignored },
	},
	{
		Name:    "data-under-mc-only-systematic",
		Summary: "recorded data is only built for nominal and the template variation",
		applies: func(c candidate) bool { return c.sample.IsData() && c.variation.MCOnly() },
	},
	{
		Name:    "estimate-under-mc-only-systematic",
		Summary: "data-driven estimates are only built for nominal and the template variation",
		applies: func(c candidate) bool { return c.sample.IsDataDriven() && c.variation.MCOnly() },
	},
	{
		Name:    "stream-channel-mismatch",
		Summary: "an electron-stream sample in the muon channel or the reverse",
		applies: func(c candidate) bool {
			switch c.sample.Category.Stream() {
			case samples.EGammaStream:
				return c.channel == coords.Muon
			case samples.MuonStream:
				return c.channel == coords.Electron
			}
			return false
		},
	},
	{
		Name:    "systematic-only-sample-outside-sample-variation",
		Summary: "alternative samples only run under their own sample variation, never under nominal",
		applies: func(c candidate) bool { return c.sample.SystematicOnly && !c.variation.IsSampleSystematic() },
	},
	{
		Name:    "regular-sample-under-sample-variation",
		Summary: "a sample variation replaces samples, so only its alternative samples run",
		applies: func(c candidate) bool { return !c.sample.SystematicOnly && c.variation.IsSampleSystematic() },
	},
	{
		Name:    "foreign-sample-variation",
		Summary: "an alternative sample only runs under the variation its name carries",
		applies: func(c candidate) bool {
			return c.sample.SystematicOnly && c.variation.IsSampleSystematic() &&
				!strings.Contains(c.sample.Name, c.variation.Name)
		},
	},
	{
		Name:    "flavour-mismatch",
		Summary: "an electron-only variation in the muon channel or the reverse",
		applies: func(c candidate) bool {
			switch c.variation.Flavour {
			case systematics.ElectronOnly:
				return c.channel == coords.Muon
			case systematics.MuonOnly:
				return c.channel == coords.Electron
			}
			return false
		},
	},
	{
		Name:    "hfor-non-wjets",
		Summary: "heavy-flavour overlap removal only splits W+jets simulation",
		applies: func(c candidate) bool { return c.stage == coords.HforSplitting && !c.sample.IsWjets() },
	},
	{
		Name:    "hfor-weight-only-systematic",
		Summary: "weight-only variations reuse the nominal hfor output",
		applies: func(c candidate) bool { return c.stage == coords.HforSplitting && c.variation.IsWeightOnly() },
	},
	{
		Name:    "mem-non-simulation",
		Summary: "matrix-element stages only run over simulation",
		applies: func(c candidate) bool {
			return (c.stage == coords.MemTkAnalysis || c.stage == coords.MemDiscAnalysis) && !c.sample.IsMC()
		},
	},
}

// SkipRules returns the rule table for documentation and reporting tools.
func SkipRules() []SkipRule {
	out := make([]SkipRule, len(skipRules))
	copy(out, skipRules)
	return out
}

// skipReason returns the name of the first rule that excludes c.
func skipReason(c candidate) (string, bool) {
	for _, r := range skipRules {
		if r.applies(c) {
			return r.Name, true
		}
	}
	return "", false
}
