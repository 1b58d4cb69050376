// Package tree expands a campaign configuration into the hierarchical task
// tree: stage folders, jet bin folders, channel folders and systematic
// folders, with dispatchable leaves at the bottom. Building is single
// threaded and a pure function of the configuration and the registries.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
)

// JetBins lists the jet multiplicity labels the analysis understands.
var JetBins = []string{"1", "2", "3", "4", "5", "6", "4to6", "1+", "2+", "3+", "all"}

// StageFlags enables build stages.
type StageFlags struct {
	HforSplitting bool
	Analysis      bool
	Merging       bool
	Plotting      bool
	MemTk         bool
	MemDisc       bool
	HistFactory   bool
}

// Enabled reports whether st is switched on.
func (f StageFlags) Enabled(st coords.Stage) bool {
	switch st {
	case coords.HforSplitting:
		return f.HforSplitting
	case coords.Analysis:
		return f.Analysis
	case coords.Merging:
		return f.Merging
	case coords.Plotting:
		return f.Plotting
	case coords.MemTkAnalysis:
		return f.MemTk
	case coords.MemDiscAnalysis:
		return f.MemDisc
	case coords.HistFactory:
		return f.HistFactory
	}
	return false
}

// List returns the enabled stages in dependency order.
func (f StageFlags) List() []coords.Stage {
	var out []coords.Stage
	for _, st := range coords.Stages {
		if f.Enabled(st) {
			out = append(out, st)
		}
	}
	return out
}

// Config is everything Build needs.
type Config struct {
	Campaign string
	Registry *systematics.Registry
	Catalog  *samples.Catalog
	Namer    paths.Namer

	// JetBins and Channels are built in the given order.
	JetBins  []string
	Channels []coords.Channel

	// Groups and Systematics select variations; see systematics.Selection.
	Groups      systematics.Group
	Systematics []string

	Stages StageFlags

	// SingleJob disables sub-job splitting. The grid backend splits work on
	// its own.
	SingleJob bool
	// RequireInputs makes an analysis leaf without any input file fatal.
	RequireInputs bool
}

func (cfg Config) validate() error {
	var errs []error
	if cfg.Registry == nil {
		errs = append(errs, errors.New("systematic registry is required"))
	}
	if cfg.Catalog == nil {
		errs = append(errs, errors.New("sample catalog is required"))
	}
	stages := cfg.Stages.List()
	if len(stages) == 0 {
		errs = append(errs, errors.New("no build stage is enabled"))
	}
	needJets := slices.ContainsFunc(stages, coords.Stage.UsesJetBins)
	if needJets && len(cfg.JetBins) == 0 {
		errs = append(errs, errors.New("at least one jet bin is required"))
	}
	seenJets := make(map[string]bool, len(cfg.JetBins))
	for _, j := range cfg.JetBins {
		if !slices.Contains(JetBins, j) {
			errs = append(errs, fmt.Errorf("unknown jet bin %q, known bins are %s", j, strings.Join(JetBins, ", ")))
		}
		if seenJets[j] {
			errs = append(errs, fmt.Errorf("jet bin %q is listed twice", j))
		}
		seenJets[j] = true
	}
	if len(cfg.Channels) == 0 {
		errs = append(errs, errors.New("at least one lepton channel is required"))
	}
	seenCh := make(map[coords.Channel]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		if ch != coords.Electron && ch != coords.Muon {
			errs = append(errs, fmt.Errorf("channel %s cannot be requested, it is derived from enu and munu", ch))
		}
		if seenCh[ch] {
			errs = append(errs, fmt.Errorf("channel %s is listed twice", ch))
		}
		seenCh[ch] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// builder carries the state of one Build call.
type builder struct {
	cfg        Config
	logger     *slog.Logger
	tree       *Tree
	variations []systematics.Variation
}

// Build expands cfg into a task tree. The systematic selection is resolved
// before any node exists, so configuration errors never leave a partial
// tree behind. The sample catalog is frozen for the rest of the process.
func Build(ctx context.Context, cfg Config) (*Tree, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Tree build started.", "campaign", cfg.Campaign)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sel, err := cfg.Registry.Select(cfg.Groups, cfg.Systematics...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	variations := sel.Variations()
	if len(variations) == 0 {
		return nil, fmt.Errorf("%w: the systematic selection %s is empty", ErrInvalidConfig, cfg.Groups)
	}

	cfg.Catalog.Freeze()
	if err := cfg.Catalog.CheckIgnoreNames(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.Stages.HistFactory && len(cfg.Stages.List()) > 1 {
		logger.Warn("HistFactory stage is exclusive, other stages are disabled.")
		cfg.Stages = StageFlags{HistFactory: true}
	}

	b := &builder{
		cfg:        cfg,
		logger:     logger,
		tree:       newTree(cfg.Campaign),
		variations: variations,
	}
	b.tree.variations = variations

	for _, st := range cfg.Stages.List() {
		if err := b.buildStage(st); err != nil {
			return nil, err
		}
	}
	if err := b.tree.graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating task dependencies: %w", err)
	}

	logger.Debug("Tree build finished.",
		"campaign", cfg.Campaign,
		"nodes", b.tree.Len(),
		"leaves", len(b.tree.leaves),
		"systematics", len(variations),
	)
	return b.tree, nil
}

// folderCoord is the position of a systematic folder.
type folderCoord struct {
	jet     string
	channel coords.Channel
	v       systematics.Variation
}

func (fc folderCoord) coord(st coords.Stage) coords.Coord {
	return coords.Coord{Stage: st, JetBin: fc.jet, Channel: fc.channel, Systematic: fc.v.Name}
}

func folderName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/") + "/"
}

func jetLabel(jet string) string {
	if jet == "" {
		return ""
	}
	return jet + "j"
}

// channelsFor returns the channel folders of a stage. Plotting adds the
// combined lepton channel when both single-lepton channels are built.
func (b *builder) channelsFor(st coords.Stage) []coords.Channel {
	chans := slices.Clone(b.cfg.Channels)
	if st == coords.Plotting && slices.Contains(chans, coords.Electron) && slices.Contains(chans, coords.Muon) {
		chans = append(chans, coords.Lepton)
	}
	return chans
}

// concreteChannels maps the combined channel back to its parts.
func concreteChannels(ch coords.Channel) []coords.Channel {
	if ch == coords.Lepton {
		return []coords.Channel{coords.Electron, coords.Muon}
	}
	return []coords.Channel{ch}
}

// buildStage creates the stage folder and everything below it. Folders
// without leaves are not attached.
func (b *builder) buildStage(st coords.Stage) error {
	stageNode := b.folder(st.Title(), coords.Coord{Stage: st}, folderName(st.String()))
	jets := b.cfg.JetBins
	if !st.UsesJetBins() {
		jets = []string{""}
	}

	for _, jet := range jets {
		jetNode := stageNode
		if jet != "" {
			jetNode = b.folder("Jet Bin "+jet, coords.Coord{Stage: st, JetBin: jet}, folderName(st.String(), jetLabel(jet)))
		}
		for _, ch := range b.channelsFor(st) {
			chNode := b.folder(ch.String()+" Channel", coords.Coord{Stage: st, JetBin: jet, Channel: ch},
				folderName(st.String(), jetLabel(jet), ch.String()))

			if st == coords.HistFactory {
				if err := b.histFactoryLeaf(chNode, jet, ch); err != nil {
					return err
				}
			} else {
				for _, v := range b.variations {
					fc := folderCoord{jet: jet, channel: ch, v: v}
					systNode := b.folder(v.Name, fc.coord(st), folderName(st.String(), jetLabel(jet), ch.String(), v.Name))
					if err := b.fillFolder(st, systNode, fc); err != nil {
						return err
					}
					b.attach(chNode, systNode)
				}
			}
			b.attach(jetNode, chNode)
		}
		if jetNode != stageNode {
			b.attach(stageNode, jetNode)
		}
	}
	b.attach(b.tree.Root, stageNode)
	b.logger.Debug("Stage built.", "stage", st, "leaves", len(b.tree.StageLeaves(st)))
	return nil
}

func (b *builder) folder(title string, c coords.Coord, name string) *Node {
	return &Node{Kind: Folder, Coord: c, Name: name, Title: title}
}

// attach links child under parent when child has leaves below it.
func (b *builder) attach(parent, child *Node) {
	if len(child.Children) == 0 {
		return
	}
	parent.addChild(child)
	b.tree.byName[child.Name] = child
}

func (b *builder) fillFolder(st coords.Stage, folder *Node, fc folderCoord) error {
	switch st {
	case coords.HforSplitting:
		return b.hforLeaves(folder, fc)
	case coords.Analysis:
		return b.analysisLeaves(folder, fc)
	case coords.Merging:
		return b.mergingLeaves(folder, fc)
	case coords.Plotting:
		return b.plottingLeaf(folder, fc)
	case coords.MemTkAnalysis, coords.MemDiscAnalysis:
		return b.memLeaves(st, folder, fc)
	}
	return fmt.Errorf("stage %s has no systematic folders", st)
}

// eligible returns the catalog samples that survive the skip rules for the
// combination. With record set, every skip is counted against its rule.
func (b *builder) eligible(st coords.Stage, ch coords.Channel, v systematics.Variation, record bool) []*samples.Sample {
	cat := b.cfg.Catalog
	var out []*samples.Sample
	for _, s := range cat.All() {
		c := candidate{stage: st, channel: ch, variation: v, sample: s}
		if st == coords.HforSplitting {
			// The ignore policy hides the inclusive W+jets samples once the
			// hfor outputs are in use, but they are exactly what hfor splits.
			c.ignored = slices.Contains(cat.IgnorePolicy().Names, s.Name)
		} else {
			c.ignored = cat.IsIgnored(s)
		}
		if rule, skip := skipReason(c); skip {
			if record {
				b.tree.skipped[rule]++
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// subJobs returns the analysis split of a sample.
func (b *builder) subJobs(s *samples.Sample) int {
	if b.cfg.SingleJob {
		return 1
	}
	return max(1, b.cfg.Catalog.SubJobsFor(s))
}

// analysisCoords returns the analysis coordinates of every sub-job of s.
func (b *builder) analysisCoords(jet string, ch coords.Channel, syst string, s *samples.Sample) []coords.Coord {
	n := b.subJobs(s)
	out := make([]coords.Coord, 0, n)
	for i := 1; i <= n; i++ {
		sub := i
		if n == 1 {
			sub = 0
		}
		out = append(out, coords.Coord{
			Stage: coords.Analysis, JetBin: jet, Channel: ch, Systematic: syst,
			Sample: s.Name, SubJob: sub, SubJobs: n,
		})
	}
	return out
}

func mergedCoord(jet string, ch coords.Channel, syst, sample string) coords.Coord {
	return coords.Coord{Stage: coords.Merging, JetBin: jet, Channel: ch, Systematic: syst, Sample: sample}
}

// newLeaf registers a leaf under parent with every derived path filled in.
func (b *builder) newLeaf(parent *Node, c coords.Coord, title string) (*Node, error) {
	n := b.cfg.Namer
	leaf := &Node{
		Kind:       Leaf,
		Coord:      c,
		Name:       n.NodeName(c),
		Title:      title,
		OutputPath: n.OutputPath(c),
		LogPath:    n.LogPath(c),
		JobDir:     n.JobDirectory(c),
		ScriptPath: n.ScriptPath(c),
	}
	switch c.Stage {
	case coords.MemTkAnalysis, coords.MemDiscAnalysis, coords.HistFactory:
		leaf.RequireSuccessMarker = true
	}
	if _, dup := b.tree.byName[leaf.Name]; dup {
		return nil, &CoordError{Coord: c, Err: fmt.Errorf("node name %q is produced twice", leaf.Name)}
	}
	b.tree.byName[leaf.Name] = leaf
	b.tree.leaves = append(b.tree.leaves, leaf)
	b.tree.graph.AddNode(leaf.Name)
	parent.addChild(leaf)
	return leaf, nil
}

// consume records input as read by leaf and, when the producer at c is part
// of the tree, adds the dependency edge.
func (b *builder) consume(leaf *Node, c coords.Coord, input string) error {
	leaf.Inputs = append(leaf.Inputs, input)
	return b.dependOn(leaf, c)
}

func (b *builder) dependOn(leaf *Node, c coords.Coord) error {
	producer, ok := b.tree.byName[b.cfg.Namer.NodeName(c)]
	if !ok || !producer.IsLeaf() {
		return nil
	}
	if err := b.tree.graph.AddEdge(producer.Name, leaf.Name); err != nil {
		return &CoordError{Coord: leaf.Coord, Err: err}
	}
	leaf.Deps = append(leaf.Deps, producer)
	return nil
}

func (b *builder) hforLeaves(folder *Node, fc folderCoord) error {
	for _, s := range b.eligible(coords.HforSplitting, fc.channel, fc.v, true) {
		c := coords.Coord{Stage: coords.HforSplitting, Channel: fc.channel, Systematic: fc.v.Name, Sample: s.Name}
		leaf, err := b.newLeaf(folder, c, s.Title)
		if err != nil {
			return err
		}
		leaf.Inputs = slices.Clone(s.Paths)
		leaf.InputSystematic = fc.v.Name
		leaf.XSection = s.XSection
	}
	return nil
}

func (b *builder) analysisLeaves(folder *Node, fc folderCoord) error {
	inSyst := paths.InputSystematic(fc.v.Name, fc.v.IsWeightOnly())
	for _, s := range b.eligible(coords.Analysis, fc.channel, fc.v, true) {
		for _, c := range b.analysisCoords(fc.jet, fc.channel, fc.v.Name, s) {
			title := s.Title
			if c.SubJob > 0 {
				title = fmt.Sprintf("%s (%d/%d)", s.Title, c.SubJob, c.SubJobs)
			}
			leaf, err := b.newLeaf(folder, c, title)
			if err != nil {
				return err
			}
			leaf.InputSystematic = inSyst
			leaf.XSection = s.XSection
			if err := b.analysisInputs(leaf, s, fc.channel, inSyst); err != nil {
				return err
			}
		}
	}
	return nil
}

// analysisInputs wires the inputs of one analysis leaf. HFOR-split samples
// read the outputs of the hfor stage, everything else reads its own paths.
func (b *builder) analysisInputs(leaf *Node, s *samples.Sample, ch coords.Channel, inSyst string) error {
	if s.IsHFOR() {
		nominal, _ := b.cfg.Registry.Lookup(systematics.Nominal)
		v := nominal
		if id, err := b.cfg.Registry.Resolve(inSyst); err == nil {
			v, _ = b.cfg.Registry.Lookup(id)
		}
		for _, w := range b.eligible(coords.HforSplitting, ch, v, false) {
			c := coords.Coord{Stage: coords.HforSplitting, Channel: ch, Systematic: inSyst, Sample: w.Name}
			if err := b.consume(leaf, c, b.cfg.Namer.OutputPath(c)); err != nil {
				return err
			}
		}
	}
	if len(leaf.Inputs) == 0 {
		leaf.Inputs = slices.Clone(s.Paths)
	}
	if b.cfg.RequireInputs && len(leaf.Inputs) == 0 {
		return &CoordError{Coord: leaf.Coord, Err: fmt.Errorf("sample %q has no input paths", s.Name)}
	}
	return nil
}

func (b *builder) mergingLeaves(folder *Node, fc folderCoord) error {
	n := b.cfg.Namer
	for _, s := range b.eligible(coords.Merging, fc.channel, fc.v, true) {
		leaf, err := b.newLeaf(folder, mergedCoord(fc.jet, fc.channel, fc.v.Name, s.Name), s.Title)
		if err != nil {
			return err
		}
		leaf.InputSystematic = fc.v.Name
		leaf.XSection = s.XSection

		subs := b.analysisCoords(fc.jet, fc.channel, fc.v.Name, s)
		if n.SubJobsAsInput && len(subs) > 1 {
			leaf.Inputs = []string{n.SubJobGlob(subs[0])}
			for _, c := range subs {
				if err := b.dependOn(leaf, c); err != nil {
					return err
				}
			}
			continue
		}
		for _, c := range subs {
			if err := b.consume(leaf, c, n.OutputPath(c)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) plottingLeaf(folder *Node, fc folderCoord) error {
	type input struct {
		c    coords.Coord
		path string
	}
	var inputs []input
	for _, ch := range concreteChannels(fc.channel) {
		for _, s := range b.eligible(coords.Merging, ch, fc.v, false) {
			c := mergedCoord(fc.jet, ch, fc.v.Name, s.Name)
			inputs = append(inputs, input{c: c, path: b.cfg.Namer.OutputPath(c)})
		}
	}
	if len(inputs) == 0 {
		return nil
	}
	leaf, err := b.newLeaf(folder, fc.coord(coords.Plotting), "Plots")
	if err != nil {
		return err
	}
	leaf.InputSystematic = fc.v.Name
	for _, in := range inputs {
		if err := b.consume(leaf, in.c, in.path); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) memLeaves(st coords.Stage, folder *Node, fc folderCoord) error {
	for _, s := range b.eligible(st, fc.channel, fc.v, true) {
		c := coords.Coord{Stage: st, JetBin: fc.jet, Channel: fc.channel, Systematic: fc.v.Name, Sample: s.Name}
		leaf, err := b.newLeaf(folder, c, s.Title)
		if err != nil {
			return err
		}
		leaf.InputSystematic = fc.v.Name
		leaf.XSection = s.XSection

		src := mergedCoord(fc.jet, fc.channel, fc.v.Name, s.Name)
		if st == coords.MemDiscAnalysis {
			src.Stage = coords.MemTkAnalysis
		}
		if err := b.consume(leaf, src, b.cfg.Namer.OutputPath(src)); err != nil {
			return err
		}
	}
	return nil
}

// histFactoryLeaf creates the single fit-input leaf of a jet bin and channel.
// It reads every merged output of the channel across the selected variations.
func (b *builder) histFactoryLeaf(folder *Node, jet string, ch coords.Channel) error {
	c := coords.Coord{Stage: coords.HistFactory, JetBin: jet, Channel: ch}
	leaf, err := b.newLeaf(folder, c, "HistFactory inputs")
	if err != nil {
		return err
	}
	for _, v := range b.variations {
		for _, s := range b.eligible(coords.Merging, ch, v, false) {
			src := mergedCoord(jet, ch, v.Name, s.Name)
			if err := b.consume(leaf, src, b.cfg.Namer.OutputPath(src)); err != nil {
				return err
			}
		}
	}
	return nil
}
