package samples

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadList(t *testing.T) {
	input := `
# name     category        xsec    color     path
DataA      data_muon       0       kBlack    data/periodA.root
ttbar      kTtbar          252.89  kRed      ttbar/part1.root
+ ttbar/part2.root
+ /abs/ttbar/part3.root

ttbar_RadHi_ttbar ttbar    252.89  kRed      ttbar/radhi.root syst
noPath     diboson         1.2     kGreen
`
	got, err := ReadList(strings.NewReader(input), "/in")
	require.NoError(t, err)

	want := []Sample{
		{Name: "DataA", Category: DataMuon, XSection: 0, Color: "kBlack", Paths: []string{"/in/data/periodA.root"}},
		{Name: "ttbar", Category: Ttbar, XSection: 252.89, Color: "kRed", Paths: []string{
			"/in/ttbar/part1.root", "/in/ttbar/part2.root", "/abs/ttbar/part3.root",
		}},
		{Name: "ttbar_RadHi_ttbar", Category: Ttbar, XSection: 252.89, Color: "kRed", Paths: []string{"/in/ttbar/radhi.root"}, SystematicOnly: true},
		{Name: "noPath", Category: Diboson, XSection: 1.2, Color: "kGreen"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadList mismatch (-want +got):\n%s", diff)
	}
}

func TestReadListErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
		msg   string
	}{
		{"continuation first", "+ a.root\n", ErrInvalidSample, "continuation"},
		{"too few fields", "a ttbar 1\n", ErrInvalidSample, "expected"},
		{"bad xsec", "a ttbar abc kRed\n", ErrInvalidSample, "cross-section"},
		{"bad category", "a unicorn 1 kRed\n", ErrInvalidSample, "unicorn"},
		{"duplicate", "a ttbar 1 kRed\na ttbar 1 kRed\n", ErrDuplicateSample, "line 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadList(strings.NewReader(tc.input), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestReadYAML(t *testing.T) {
	input := `
samples:
  - name: MCB
    category: signal
    xsec: 3.3
    paths: [mc/b1.root, mc/b2.root]
  - name: DataA
    category: data
  - name: MCB_WtDS
    category: sgtop_wt
    systematic_only: true
`
	got, err := ReadYAML(strings.NewReader(input), "/in")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Signal, got[0].Category)
	assert.Equal(t, []string{"/in/mc/b1.root", "/in/mc/b2.root"}, got[0].Paths)
	assert.Equal(t, Data, got[1].Category)
	assert.True(t, got[2].SystematicOnly)

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := ReadYAML(strings.NewReader("samples:\n  - name: a\n    categroy: ttbar\n"), "")
		assert.Error(t, err)
	})

	t.Run("duplicates are rejected", func(t *testing.T) {
		_, err := ReadYAML(strings.NewReader("samples:\n  - {name: a, category: ttbar}\n  - {name: a, category: ttbar}\n"), "")
		assert.ErrorIs(t, err, ErrDuplicateSample)
	})

	t.Run("empty document", func(t *testing.T) {
		got, err := ReadYAML(strings.NewReader(""), "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestReadSizes(t *testing.T) {
	got, err := ReadSizes(strings.NewReader("# sizes\nttbar 1200000 1.5e6\nqcd 10\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ttbar": 1200000, "qcd": 10}, got)

	_, err = ReadSizes(strings.NewReader("a 1\na 2\n"))
	assert.ErrorIs(t, err, ErrDuplicateSample)

	_, err = ReadSizes(strings.NewReader("a -4\n"))
	assert.ErrorIs(t, err, ErrInvalidSample)
}
