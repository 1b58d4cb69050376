// Package samples holds the ordered collection of samples a campaign runs
// over, the per-category parallelism policy and the ignore rules evaluated by
// the tree builder.
package samples

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSample is returned when two samples share a name.
	ErrDuplicateSample = errors.New("duplicate sample")
	// ErrInvalidSample is returned for malformed sample declarations.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrCatalogFrozen is returned when the catalog is modified during a build.
	ErrCatalogFrozen = errors.New("sample catalog is frozen")
	// ErrUnknownSample is returned when a name does not match any sample.
	ErrUnknownSample = errors.New("unknown sample")
)

// defaultSubJobs is the parallelism used when a campaign sets nothing for a
// category. Dominant backgrounds are split, rare processes run in one job.
var defaultSubJobs = map[Category]int{
	Data:          1,
	DataEGamma:    1,
	DataMuon:      1,
	QCD:           2,
	QCDEGamma:     2,
	QCDMuon:       2,
	Ttbar:         3,
	SgTopSChannel: 1,
	SgTopTChannel: 5,
	SgTopWt:       1,
	WjetsB:        3,
	WjetsC:        1,
	WjetsLight:    1,
	ZjetsB:        1,
}

// IgnorePolicy configures which samples the builder leaves out entirely.
type IgnorePolicy struct {
	// UseHforSamples selects the HFOR-split W+jets samples instead of the
	// inclusive and flavour-split ones.
	UseHforSamples bool
	// MCOnly drops data streams and data-driven estimates.
	MCOnly bool
	// SkipDataDriven drops data-driven estimates, e.g. when only the
	// simulated inputs of a fit are rebuilt.
	SkipDataDriven bool
	// Names are ignored explicitly.
	Names []string
}

// Catalog is the ordered set of samples of a campaign.
type Catalog struct {
	samples []*Sample
	byName  map[string]*Sample
	subJobs map[Category]int
	ignore  IgnorePolicy
	ignored map[string]struct{}
	sizes   map[string]int64
	// maxEventsPerSubJob enables automatic splitting from the size list.
	maxEventsPerSubJob int64
	frozen             bool
}

// NewCatalog returns an empty catalog with the default sub-job policy.
func NewCatalog() *Catalog {
	c := &Catalog{
		byName:  make(map[string]*Sample),
		subJobs: make(map[Category]int, len(defaultSubJobs)),
		ignored: make(map[string]struct{}),
		sizes:   make(map[string]int64),
	}
	for cat, n := range defaultSubJobs {
		c.subJobs[cat] = n
	}
	return c
}

// Add registers a copy of s. Names must be unique: the namer derives every
// path from them. A sample never changes once added; callers of Lookup, All
// and Filter must not modify it.
func (c *Catalog) Add(s Sample) error {
	if c.frozen {
		return fmt.Errorf("%w: cannot add sample %q", ErrCatalogFrozen, s.Name)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := c.byName[s.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSample, s.Name)
	}
	if s.Title == "" {
		s.Title = s.Name
	}
	stored := s.clone()
	c.samples = append(c.samples, stored)
	c.byName[s.Name] = stored
	return nil
}

// Freeze makes the catalog read-only. The builder freezes the catalog before
// expanding it so that iteration is stable for the whole pass.
func (c *Catalog) Freeze() { c.frozen = true }

// Frozen reports whether Freeze was called.
func (c *Catalog) Frozen() bool { return c.frozen }

// Len returns the number of samples.
func (c *Catalog) Len() int { return len(c.samples) }

// All returns the samples in insertion order.
func (c *Catalog) All() []*Sample {
	out := make([]*Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// Filter returns, in insertion order, the samples matching pred.
func (c *Catalog) Filter(pred func(*Sample) bool) []*Sample {
	var out []*Sample
	for _, s := range c.samples {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup finds a sample by name.
func (c *Catalog) Lookup(name string) (*Sample, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// SetSubJobCount overrides the sub-job count of a category.
func (c *Catalog) SetSubJobCount(cat Category, n int) error {
	if !isKnown(cat) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidSample, cat)
	}
	if n < 1 {
		return fmt.Errorf("%w: sub-job count for %q must be at least 1, got %d", ErrInvalidSample, cat, n)
	}
	c.subJobs[cat] = n
	return nil
}

// SubJobCountFor returns the parallelism hint for a category.
func (c *Catalog) SubJobCountFor(cat Category) int {
	if n, ok := c.subJobs[cat]; ok {
		return n
	}
	return 1
}

// SetSampleSizes installs event counts per sample and the maximum number of
// events one sub-job may process. A zero maximum disables size-based splitting.
func (c *Catalog) SetSampleSizes(sizes map[string]int64, maxEventsPerSubJob int64) {
	c.sizes = make(map[string]int64, len(sizes))
	for k, v := range sizes {
		c.sizes[k] = v
	}
	c.maxEventsPerSubJob = maxEventsPerSubJob
}

// SubJobsFor returns the number of sub-jobs for a sample. With a size list
// and a per-job event limit the count is derived from the sample size,
// otherwise the category policy applies.
func (c *Catalog) SubJobsFor(s *Sample) int {
	if c.maxEventsPerSubJob > 0 {
		if n, ok := c.sizes[s.Name]; ok && n > 0 {
			jobs := (n + c.maxEventsPerSubJob - 1) / c.maxEventsPerSubJob
			return int(jobs)
		}
	}
	return c.SubJobCountFor(s.Category)
}

// SetIgnorePolicy replaces the ignore policy.
func (c *Catalog) SetIgnorePolicy(p IgnorePolicy) {
	c.ignore = p
	c.ignored = make(map[string]struct{}, len(p.Names))
	for _, n := range p.Names {
		c.ignored[n] = struct{}{}
	}
}

// IgnorePolicy returns the active ignore policy.
func (c *Catalog) IgnorePolicy() IgnorePolicy { return c.ignore }

// IsIgnored reports whether the builder must leave s out of every stage.
// Lepton flavour is not taken into account here.
func (c *Catalog) IsIgnored(s *Sample) bool {
	if _, ok := c.ignored[s.Name]; ok {
		return true
	}
	if c.ignore.MCOnly && !s.IsMC() {
		return true
	}
	if c.ignore.SkipDataDriven && s.IsDataDriven() {
		return true
	}
	if c.ignore.UseHforSamples {
		return s.IsWjets()
	}
	return s.IsHFOR()
}

// CheckIgnoreNames verifies that explicitly ignored names exist.
func (c *Catalog) CheckIgnoreNames() error {
	var errs []error
	for _, n := range c.ignore.Names {
		if _, ok := c.byName[n]; !ok {
			errs = append(errs, fmt.Errorf("%w: ignored sample %q is not declared", ErrUnknownSample, n))
		}
	}
	return errors.Join(errs...)
}
