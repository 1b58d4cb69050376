package systematics

import (
	"fmt"
	"strings"
)

// ID identifies a systematic variation. IDs are stable for the lifetime of a
// campaign: static variations occupy 0..StaticCount-1, name-declared
// variations start at DynamicOffset.
type ID int

// DynamicOffset is the first ID handed out to name-declared variations.
const DynamicOffset ID = 0x10000

// Nominal is the ID of the nominal (unshifted) configuration.
const Nominal ID = 0

// TemplateName is the placeholder variation used for grid template jobs. The
// grid run script substitutes the real variation name at run time, so data
// is processed under it like under nominal.
const TemplateName = "TEMPLATE"

// Group is a bitmask of systematic groups.
type Group uint32

const (
	GroupNominal Group = 1 << iota
	GroupJES
	GroupDefaultSyst
	GroupScaleFactors
	GroupJESCompOnly
	GroupBTagEV
	GroupSampleSyst
	GroupMultiLeptonFakes
)

const (
	GroupAllDefault = GroupNominal | GroupJES | GroupDefaultSyst | GroupScaleFactors
	GroupAllJESComp = GroupNominal | GroupDefaultSyst | GroupScaleFactors | GroupJESCompOnly
	GroupAll        = GroupNominal | GroupJES | GroupDefaultSyst | GroupScaleFactors | GroupJESCompOnly
)

var groupNames = []struct {
	name  string
	group Group
}{
	{"Nominal", GroupNominal},
	{"JES", GroupJES},
	{"DefaultSyst", GroupDefaultSyst},
	{"ScaleFactors", GroupScaleFactors},
	{"JESCompOnly", GroupJESCompOnly},
	{"BTagEV", GroupBTagEV},
	{"SampleSyst", GroupSampleSyst},
	{"MultiLeptonFakes", GroupMultiLeptonFakes},
	{"AllDefault", GroupAllDefault},
	{"AllJESComp", GroupAllJESComp},
	{"All", GroupAll},
}

// ParseGroup resolves a group or group alias by name (case-insensitive).
func ParseGroup(name string) (Group, error) {
	for _, g := range groupNames {
		if strings.EqualFold(g.name, name) {
			return g.group, nil
		}
	}
	return 0, fmt.Errorf("%w: group %q", ErrUnknownSystematic, name)
}

// ParseGroups ORs together the named groups.
func ParseGroups(names []string) (Group, error) {
	var out Group
	for _, n := range names {
		g, err := ParseGroup(n)
		if err != nil {
			return 0, err
		}
		out |= g
	}
	return out, nil
}

// String lists the single-bit groups contained in g.
func (g Group) String() string {
	if g == 0 {
		return "none"
	}
	var parts []string
	for _, gn := range groupNames[:8] {
		if g&gn.group != 0 {
			parts = append(parts, gn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Kind classifies how a variation is produced.
type Kind uint8

const (
	KindNominal Kind = iota
	KindDetector
	KindJESComponent
	KindScaleFactor
	KindBTagEV
	KindSample
	KindWeight
	KindFake
	KindDynamic
)

// Flavour restricts a variation to one lepton flavour.
type Flavour uint8

const (
	AnyFlavour Flavour = iota
	ElectronOnly
	MuonOnly
)

// Variation is one named systematic variation.
type Variation struct {
	ID     ID
	Name   string
	Groups Group
	Kind   Kind
	// Flavour is set for lepton-specific detector variations.
	Flavour Flavour
	// Family is the name of the breakdown family head (e.g. "btagSF_up")
	// and FamilyIndex the component position, -1 when not in a family.
	Family      string
	FamilyIndex int
}

// IsNominal reports whether v is the nominal configuration.
func (v Variation) IsNominal() bool { return v.ID == Nominal }

// IsTemplate reports whether v is the grid template placeholder.
func (v Variation) IsTemplate() bool { return v.Name == TemplateName }

// IsScaleFactor reports whether v only reweights events through a scale factor.
func (v Variation) IsScaleFactor() bool { return v.Kind == KindScaleFactor }

// IsBTagEV reports whether v is a b-tagging eigenvector component.
func (v Variation) IsBTagEV() bool { return v.Kind == KindBTagEV }

// IsJESComponent reports whether v is a JES component shift.
func (v Variation) IsJESComponent() bool { return v.Kind == KindJESComponent }

// IsSampleSystematic reports whether v swaps the nominal sample for an
// alternative one (generator, radiation and scale variations).
func (v Variation) IsSampleSystematic() bool { return v.Kind == KindSample }

// IsWeightOnly reports whether v reuses the nominal input and only changes
// event weights.
func (v Variation) IsWeightOnly() bool {
	return v.Kind == KindScaleFactor || v.Kind == KindBTagEV || v.Kind == KindWeight
}

// MCOnly reports whether v is meaningless for recorded data. Only nominal and
// the template placeholder apply to data.
func (v Variation) MCOnly() bool {
	return !v.IsNominal() && !v.IsTemplate()
}

var dynamicScaleFactorPrefixes = []string{
	"EL_SF_", "MU_SF_", "Pileup_SF_", "JVT_SF_", "ForwardJVT_SF_", "bTagSF_", "MCWEIGHTS_", "MCWEIGHT_",
}

// dynamicKind classifies a name-declared variation from its prefix.
func dynamicKind(name string) Kind {
	for _, p := range dynamicScaleFactorPrefixes {
		if strings.HasPrefix(name, p) {
			return KindScaleFactor
		}
	}
	return KindDynamic
}
