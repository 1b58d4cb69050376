package config

import "time"

// Backends a campaign can dispatch to.
const (
	BackendLocal = "local"
	BackendGrid  = "grid"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultWorkers       = 8
	DefaultSubmitTimeout = 2 * time.Minute
	DefaultPrefix        = "hist"
)

// Model is everything the configuration files declare.
type Model struct {
	Campaign *Campaign
	// Samples declared inline, in file order.
	Samples []Sample
	// Files are the configuration files the model was loaded from.
	Files []string
}

// Campaign is the typed campaign definition.
type Campaign struct {
	Name      string
	OutputDir string
	JobHome   string
	TempDir   string
	Prefix    string

	JetBins  []string
	Channels []string
	Stages   Stages

	Systematics Systematics
	Ignore      Ignore

	// SubJobs maps category names to sub-job counts.
	SubJobs            map[string]int
	SampleLists        []string
	SampleSizes        string
	MaxEventsPerSubJob int64
	SubJobsAsInput     bool
	SingleJob          bool
	RequireInputs      bool

	Backend              string
	Workers              int
	SubmitTimeout        time.Duration
	Advisory             bool
	DryRun               bool
	ForceRetry           bool
	FailFastOnTimeout    bool
	RequireSuccessMarker bool

	Local   *Local
	Grid    *Grid
	Monitor *Monitor
}

// Stages are the build stage switches.
type Stages struct {
	HforSplitting bool
	Analysis      bool
	Merging       bool
	Plotting      bool
	MemTk         bool
	MemDisc       bool
	HistFactory   bool
}

// Any reports whether at least one stage is enabled.
func (s Stages) Any() bool {
	return s.HforSplitting || s.Analysis || s.Merging || s.Plotting || s.MemTk || s.MemDisc || s.HistFactory
}

// Systematics selects variations by group and by name. Dynamic names are
// appended to the registry table before selection.
type Systematics struct {
	Groups  []string
	Names   []string
	Dynamic []string
}

// Ignore mirrors the catalog's ignore policy.
type Ignore struct {
	UseHforSamples bool
	MCOnly         bool
	SkipDataDriven bool
	Names          []string
}

// Local configures the local batch backend.
type Local struct {
	RunTemplate   string
	Env           map[string]string
	SubmitCommand string
	Nodes         string
}

// Grid configures the grid backend.
type Grid struct {
	Home          string
	User          string
	Suffix        string
	IDSuffix      string
	RequiredFiles []string
	AuxFiles      []string
	RunTemplate   string
	Setup         string
	Env           map[string]string
	RootVersion   string
	CmtConfig     string
	MaxCPUCount   int
	FilesPerJob   int
	DestSE        string
	TarballOnly   bool
	Command       string
}

// Monitor configures the optional socket.io progress publisher.
type Monitor struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Sample is a sample declared in a configuration file.
type Sample struct {
	Name           string
	Title          string
	Category       string
	XSection       float64
	Color          string
	Paths          []string
	SystematicOnly bool
}

// ApplyDefaults fills unset optional fields.
func (c *Campaign) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.SubmitTimeout == 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if len(c.Systematics.Groups) == 0 && len(c.Systematics.Names) == 0 {
		c.Systematics.Groups = []string{"Nominal"}
	}
}
