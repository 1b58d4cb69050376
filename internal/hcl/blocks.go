package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of one file.
type fileRoot struct {
	Campaigns []*campaignBlock `hcl:"campaign,block"`
	Samples   []*sampleBlock   `hcl:"sample,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type campaignBlock struct {
	Name      string `hcl:"name,label"`
	OutputDir string `hcl:"output_dir"`
	JobHome   string `hcl:"job_home"`
	TempDir   string `hcl:"temp_dir,optional"`
	Prefix    string `hcl:"prefix,optional"`

	JetBins  []string `hcl:"jet_bins,optional"`
	Channels []string `hcl:"channels,optional"`

	SubJobs            map[string]int `hcl:"subjobs,optional"`
	SampleLists        []string       `hcl:"sample_lists,optional"`
	SampleSizes        string         `hcl:"sample_sizes,optional"`
	MaxEventsPerSubJob int64          `hcl:"max_events_per_subjob,optional"`
	SubJobsAsInput     bool           `hcl:"subjobs_as_input,optional"`
	SingleJob          bool           `hcl:"single_job,optional"`
	RequireInputs      bool           `hcl:"require_inputs,optional"`

	Backend              string `hcl:"backend,optional"`
	Workers              int    `hcl:"workers,optional"`
	SubmitTimeout        string `hcl:"submit_timeout,optional"`
	Advisory             bool   `hcl:"advisory,optional"`
	DryRun               bool   `hcl:"dry_run,optional"`
	ForceRetry           bool   `hcl:"force_retry,optional"`
	FailFastOnTimeout    bool   `hcl:"fail_fast_on_timeout,optional"`
	RequireSuccessMarker bool   `hcl:"require_success_marker,optional"`

	Stages      *stagesBlock      `hcl:"stages,block"`
	Systematics *systematicsBlock `hcl:"systematics,block"`
	Ignore      *ignoreBlock      `hcl:"ignore,block"`
	Local       *localBlock       `hcl:"local,block"`
	Grid        *gridBlock        `hcl:"grid,block"`
	Monitor     *monitorBlock     `hcl:"monitor,block"`
}

type stagesBlock struct {
	HforSplitting bool `hcl:"hfor_splitting,optional"`
	Analysis      bool `hcl:"analysis,optional"`
	Merging       bool `hcl:"merging,optional"`
	Plotting      bool `hcl:"plotting,optional"`
	MemTk         bool `hcl:"memtk,optional"`
	MemDisc       bool `hcl:"memdisc,optional"`
	HistFactory   bool `hcl:"hist_factory,optional"`
}

type systematicsBlock struct {
	Groups  []string `hcl:"groups,optional"`
	Names   []string `hcl:"names,optional"`
	Dynamic []string `hcl:"dynamic,optional"`
}

type ignoreBlock struct {
	UseHforSamples bool     `hcl:"use_hfor_samples,optional"`
	MCOnly         bool     `hcl:"mc_only,optional"`
	SkipDataDriven bool     `hcl:"skip_data_driven,optional"`
	Samples        []string `hcl:"samples,optional"`
}

type localBlock struct {
	RunTemplate   string            `hcl:"run_template"`
	Env           map[string]string `hcl:"env,optional"`
	SubmitCommand string            `hcl:"submit_command,optional"`
	Nodes         string            `hcl:"nodes,optional"`
}

type gridBlock struct {
	Home          string            `hcl:"home"`
	User          string            `hcl:"user"`
	Suffix        string            `hcl:"suffix,optional"`
	IDSuffix      string            `hcl:"id_suffix,optional"`
	RequiredFiles []string          `hcl:"required_files,optional"`
	AuxFiles      []string          `hcl:"aux_files,optional"`
	RunTemplate   string            `hcl:"run_template"`
	Setup         string            `hcl:"setup,optional"`
	Env           map[string]string `hcl:"env,optional"`
	RootVersion   string            `hcl:"root_version,optional"`
	CmtConfig     string            `hcl:"cmt_config,optional"`
	MaxCPUCount   int               `hcl:"max_cpu_count,optional"`
	FilesPerJob   int               `hcl:"files_per_job,optional"`
	DestSE        string            `hcl:"dest_se,optional"`
	TarballOnly   bool              `hcl:"tarball_only,optional"`
	Command       string            `hcl:"command,optional"`
}

type monitorBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
}

type sampleBlock struct {
	Name           string   `hcl:"name,label"`
	Category       string   `hcl:"category"`
	Title          string   `hcl:"title,optional"`
	XSection       float64  `hcl:"xsec,optional"`
	Color          string   `hcl:"color,optional"`
	Paths          []string `hcl:"paths,optional"`
	SystematicOnly bool     `hcl:"systematic_only,optional"`
}
