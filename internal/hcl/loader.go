package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/campaigngrid/internal/config"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that resolves env() from the process
// environment.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// Load parses every .hcl file under paths. Exactly one campaign block must
// exist across all files; sample blocks may be spread over any of them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no .hcl configuration files found")
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{Files: files}
	parser := hclparse.NewParser()
	var campaignFile string

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		dir, err := filepath.Abs(filepath.Dir(file))
		if err != nil {
			return nil, err
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalContext(dir, l.lookupEnv), &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := rejectUnknownBlocks(file, root); err != nil {
			return nil, err
		}

		for _, cb := range root.Campaigns {
			if model.Campaign != nil {
				return nil, fmt.Errorf("campaign %q in %s: only one campaign block is allowed, %q is already defined in %s",
					cb.Name, file, model.Campaign.Name, campaignFile)
			}
			c, err := translateCampaign(cb, dir)
			if err != nil {
				return nil, fmt.Errorf("campaign %q in %s: %w", cb.Name, file, err)
			}
			model.Campaign = c
			campaignFile = file
		}
		for _, sb := range root.Samples {
			model.Samples = append(model.Samples, translateSample(sb, dir))
		}
	}
	if model.Campaign == nil {
		return nil, errors.New("no campaign block found")
	}
	model.Campaign.ApplyDefaults()

	logger.Debug("HCL loading complete.", "campaign", model.Campaign.Name, "samples", len(model.Samples), "files", len(files))
	return model, nil
}

// rejectUnknownBlocks turns leftover top-level content into an error instead
// of silently ignoring a misspelled block.
func rejectUnknownBlocks(file string, root fileRoot) error {
	if root.Remain == nil {
		return nil
	}
	attrs, diags := root.Remain.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("unexpected content in %s: %w", file, diags)
	}
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("%s: unexpected top-level attribute %q", attrs[names[0]].Range, names[0])
}
