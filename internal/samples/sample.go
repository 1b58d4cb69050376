package samples

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Class is the coarse category tag of a sample.
type Class int

const (
	DataStream Class = iota
	SignalProcess
	BackgroundProcess
	DataDrivenEstimate
)

func (c Class) String() string {
	switch c {
	case DataStream:
		return "data-stream"
	case SignalProcess:
		return "signal-process"
	case BackgroundProcess:
		return "background-process"
	case DataDrivenEstimate:
		return "data-driven-estimate"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Category is the fine-grained process category of a sample. Sub-job
// policies and skip rules are keyed on it.
type Category string

const (
	Data       Category = "data"
	DataEGamma Category = "data_egamma"
	DataMuon   Category = "data_muon"

	QCD       Category = "qcd"
	QCDEGamma Category = "qcd_egamma"
	QCDMuon   Category = "qcd_muon"

	Signal        Category = "signal"
	SgTopTChannel Category = "sgtop_tchannel"
	SgTopSChannel Category = "sgtop_schannel"
	SgTopWt       Category = "sgtop_wt"
	TZj           Category = "tzj"
	FCNCtZ        Category = "fcnc_tz"

	Background Category = "background"
	Ttbar      Category = "ttbar"
	TtbarV     Category = "ttbarv"
	Wjets      Category = "wjets"
	WjetsLight Category = "wjets_light"
	WjetsB     Category = "wjets_b"
	WjetsC     Category = "wjets_c"
	Zjets      Category = "zjets"
	ZjetsB     Category = "zjets_b"
	ZjetsC     Category = "zjets_c"
	Diboson    Category = "diboson"
	HFOR0      Category = "hfor0"
	HFOR1      Category = "hfor1"
	HFOR2      Category = "hfor2"
	HFOR3      Category = "hfor3"
)

var categoryClass = map[Category]Class{
	Data: DataStream, DataEGamma: DataStream, DataMuon: DataStream,
	QCD: DataDrivenEstimate, QCDEGamma: DataDrivenEstimate, QCDMuon: DataDrivenEstimate,
	Signal: SignalProcess, SgTopTChannel: SignalProcess, SgTopSChannel: SignalProcess,
	SgTopWt: SignalProcess, TZj: SignalProcess, FCNCtZ: SignalProcess,
	Background: BackgroundProcess, Ttbar: BackgroundProcess, TtbarV: BackgroundProcess,
	Wjets: BackgroundProcess, WjetsLight: BackgroundProcess, WjetsB: BackgroundProcess,
	WjetsC: BackgroundProcess, Zjets: BackgroundProcess, ZjetsB: BackgroundProcess,
	ZjetsC: BackgroundProcess, Diboson: BackgroundProcess,
	HFOR0: BackgroundProcess, HFOR1: BackgroundProcess, HFOR2: BackgroundProcess, HFOR3: BackgroundProcess,
}

// ParseCategory resolves a category name (case-insensitive). A leading "k"
// as used by older sample lists is tolerated ("kTtbar").
func ParseCategory(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if c := Category(n); isKnown(c) {
		return c, nil
	}
	if strings.HasPrefix(n, "k") {
		if c := Category(n[1:]); isKnown(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidSample, name)
}

func isKnown(c Category) bool {
	_, ok := categoryClass[c]
	return ok
}

// Categories returns every known category, sorted.
func Categories() []Category {
	out := make([]Category, 0, len(categoryClass))
	for c := range categoryClass {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Class returns the coarse class of the category.
func (c Category) Class() Class {
	return categoryClass[c]
}

// Stream is the trigger stream of a data or data-driven sample.
type Stream int

const (
	NoStream Stream = iota
	EGammaStream
	MuonStream
)

// Stream returns the trigger stream a data-like category belongs to.
func (c Category) Stream() Stream {
	switch c {
	case DataEGamma, QCDEGamma:
		return EGammaStream
	case DataMuon, QCDMuon:
		return MuonStream
	}
	return NoStream
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_+-]+$`)

// Sample is one declared input dataset. Samples are immutable once added to
// a Catalog.
type Sample struct {
	Name     string
	Title    string
	Category Category
	// XSection is carried for the analysis executable and not interpreted here.
	XSection float64
	Color    string
	Paths    []string
	// SystematicOnly samples are alternative samples used only by the sample
	// systematic whose name their own name contains.
	SystematicOnly bool
}

// Validate checks the sample's identity fields.
func (s *Sample) Validate() error {
	if !namePattern.MatchString(s.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidSample, s.Name, namePattern)
	}
	if !isKnown(s.Category) {
		return fmt.Errorf("%w: sample %q has unknown category %q", ErrInvalidSample, s.Name, s.Category)
	}
	return nil
}

func (s *Sample) IsData() bool       { return s.Category.Class() == DataStream }
func (s *Sample) IsDataDriven() bool { return s.Category.Class() == DataDrivenEstimate }
func (s *Sample) IsMC() bool         { return !s.IsData() && !s.IsDataDriven() }

func (s *Sample) IsTtbar() bool { return s.Category == Ttbar }

func (s *Sample) IsWjetsLight() bool { return s.Category == WjetsLight }

func (s *Sample) IsWjetsHeavy() bool { return s.Category == WjetsB || s.Category == WjetsC }

// IsWjets covers inclusive and flavour-split W+jets samples.
func (s *Sample) IsWjets() bool {
	return s.Category == Wjets || s.IsWjetsLight() || s.IsWjetsHeavy()
}

// IsHFOR reports whether the sample is an output of HFOR splitting.
func (s *Sample) IsHFOR() bool {
	switch s.Category {
	case HFOR0, HFOR1, HFOR2, HFOR3:
		return true
	}
	return false
}

func (s *Sample) clone() *Sample {
	c := *s
	c.Paths = append([]string(nil), s.Paths...)
	return &c
}
