package samples

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadList parses the whitespace separated sample list format:
//
//	# name      category  xsec    color  path
//	ttbar_a     ttbar     252.89  kRed   ttbar/part1.root
//	+ ttbar/part2.root
//
// Blank lines and lines starting with '#' are skipped. A line starting with
// '+' appends a path to the previous sample. Relative paths are joined to
// basedir.
func ReadList(r io.Reader, basedir string) ([]Sample, error) {
	var out []Sample
	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "+") {
			if len(out) == 0 {
				return nil, fmt.Errorf("%w: line %d: continuation without a preceding sample", ErrInvalidSample, lineNo)
			}
			p := strings.TrimSpace(strings.TrimPrefix(line, "+"))
			if p == "" {
				return nil, fmt.Errorf("%w: line %d: empty continuation path", ErrInvalidSample, lineNo)
			}
			last := &out[len(out)-1]
			last.Paths = append(last.Paths, joinBase(basedir, p))
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: line %d: expected 'name category xsec color [path]', got %q", ErrInvalidSample, lineNo, line)
		}
		cat, err := ParseCategory(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		xsec, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad cross-section %q", ErrInvalidSample, lineNo, fields[2])
		}
		s := Sample{
			Name:     fields[0],
			Category: cat,
			XSection: xsec,
			Color:    fields[3],
		}
		if len(fields) > 4 {
			s.Paths = append(s.Paths, joinBase(basedir, fields[4]))
		}
		if len(fields) > 5 && strings.EqualFold(fields[5], "syst") {
			s.SystematicOnly = true
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%w: %q on line %d was already declared on line %d", ErrDuplicateSample, s.Name, lineNo, prev)
		}
		seen[s.Name] = lineNo
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sample list: %w", err)
	}
	return out, nil
}

// yamlList is the YAML form of a sample list.
type yamlList struct {
	Samples []yamlSample `yaml:"samples"`
}

type yamlSample struct {
	Name           string   `yaml:"name"`
	Title          string   `yaml:"title"`
	Category       string   `yaml:"category"`
	XSection       float64  `yaml:"xsec"`
	Color          string   `yaml:"color"`
	Paths          []string `yaml:"paths"`
	SystematicOnly bool     `yaml:"systematic_only"`
}

// ReadYAML parses a YAML sample list:
//
//	samples:
//	  - name: ttbar_a
//	    category: ttbar
//	    xsec: 252.89
//	    paths: [ttbar/part1.root, ttbar/part2.root]
func ReadYAML(r io.Reader, basedir string) ([]Sample, error) {
	var doc yamlList
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode YAML sample list: %w", err)
	}
	out := make([]Sample, 0, len(doc.Samples))
	seen := make(map[string]struct{}, len(doc.Samples))
	for i, ys := range doc.Samples {
		cat, err := ParseCategory(ys.Category)
		if err != nil {
			return nil, fmt.Errorf("sample #%d (%s): %w", i, ys.Name, err)
		}
		if _, ok := seen[ys.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSample, ys.Name)
		}
		seen[ys.Name] = struct{}{}
		s := Sample{
			Name:           ys.Name,
			Title:          ys.Title,
			Category:       cat,
			XSection:       ys.XSection,
			Color:          ys.Color,
			SystematicOnly: ys.SystematicOnly,
		}
		for _, p := range ys.Paths {
			s.Paths = append(s.Paths, joinBase(basedir, p))
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadSizes parses a sample size list ("name events" per line) used for
// automatic sub-job splitting.
func ReadSizes(r io.Reader) (map[string]int64, error) {
	out := make(map[string]int64)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: size list line %d: expected 'name events'", ErrInvalidSample, lineNo)
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: size list line %d: bad event count %q", ErrInvalidSample, lineNo, fields[1])
		}
		if _, ok := out[fields[0]]; ok {
			return nil, fmt.Errorf("%w: size list names %q twice", ErrDuplicateSample, fields[0])
		}
		out[fields[0]] = n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read size list: %w", err)
	}
	return out, nil
}

func joinBase(basedir, p string) string {
	if basedir == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(basedir, p)
}
