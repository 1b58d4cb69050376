package samples

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAdd(t *testing.T) {
	t.Run("keeps insertion order", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Add(Sample{Name: "DataA", Category: Data}))
		require.NoError(t, c.Add(Sample{Name: "MCB", Category: Signal}))
		require.NoError(t, c.Add(Sample{Name: "ttbar", Category: Ttbar}))

		var names []string
		for _, s := range c.All() {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"DataA", "MCB", "ttbar"}, names)
		assert.Equal(t, 3, c.Len())

		s, ok := c.Lookup("MCB")
		require.True(t, ok)
		assert.Equal(t, "MCB", s.Title, "title defaults to the name")
	})

	t.Run("duplicate names are fatal", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Add(Sample{Name: "MCB", Category: Signal}))
		err := c.Add(Sample{Name: "MCB", Category: Ttbar})
		assert.ErrorIs(t, err, ErrDuplicateSample)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("invalid declarations", func(t *testing.T) {
		c := NewCatalog()
		assert.ErrorIs(t, c.Add(Sample{Name: "a/b", Category: Ttbar}), ErrInvalidSample)
		assert.ErrorIs(t, c.Add(Sample{Name: "a.b", Category: Ttbar}), ErrInvalidSample)
		assert.ErrorIs(t, c.Add(Sample{Name: "ok", Category: "nonsense"}), ErrInvalidSample)
	})

	t.Run("frozen catalog rejects changes", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Add(Sample{Name: "a", Category: Ttbar}))
		c.Freeze()
		assert.True(t, c.Frozen())
		assert.ErrorIs(t, c.Add(Sample{Name: "b", Category: Ttbar}), ErrCatalogFrozen)
	})

	t.Run("stored samples are copies", func(t *testing.T) {
		c := NewCatalog()
		paths := []string{"/in/a.root"}
		require.NoError(t, c.Add(Sample{Name: "a", Category: Ttbar, Paths: paths}))
		paths[0] = "/mutated"
		s, _ := c.Lookup("a")
		assert.Equal(t, "/in/a.root", s.Paths[0])
	})

	t.Run("list continuations are part of the added sample", func(t *testing.T) {
		list, err := ReadList(strings.NewReader("ttbar ttbar 252.89 kRed part1.root\n+ part2.root\n"), "/in")
		require.NoError(t, err)
		c := NewCatalog()
		for _, s := range list {
			require.NoError(t, c.Add(s))
		}
		s, ok := c.Lookup("ttbar")
		require.True(t, ok)
		assert.Equal(t, []string{"/in/part1.root", "/in/part2.root"}, s.Paths)
	})
}

func TestCatalogFilter(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(Sample{Name: "DataA", Category: Data}))
	require.NoError(t, c.Add(Sample{Name: "ttbar", Category: Ttbar}))
	require.NoError(t, c.Add(Sample{Name: "qcd", Category: QCD}))
	require.NoError(t, c.Add(Sample{Name: "tchan", Category: SgTopTChannel}))

	mc := c.Filter((*Sample).IsMC)
	require.Len(t, mc, 2)
	assert.Equal(t, "ttbar", mc[0].Name)
	assert.Equal(t, "tchan", mc[1].Name)

	assert.Len(t, c.Filter((*Sample).IsData), 1)
	assert.Len(t, c.Filter((*Sample).IsDataDriven), 1)
}

func TestSubJobs(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, 3, c.SubJobCountFor(Ttbar))
	assert.Equal(t, 5, c.SubJobCountFor(SgTopTChannel))
	assert.Equal(t, 2, c.SubJobCountFor(QCD))
	assert.Equal(t, 1, c.SubJobCountFor(Diboson))

	require.NoError(t, c.SetSubJobCount(Signal, 3))
	assert.Equal(t, 3, c.SubJobCountFor(Signal))
	assert.ErrorIs(t, c.SetSubJobCount(Signal, 0), ErrInvalidSample)
	assert.ErrorIs(t, c.SetSubJobCount("bogus", 2), ErrInvalidSample)

	t.Run("size based splitting", func(t *testing.T) {
		require.NoError(t, c.Add(Sample{Name: "big", Category: Ttbar}))
		require.NoError(t, c.Add(Sample{Name: "unsized", Category: Ttbar}))
		c.SetSampleSizes(map[string]int64{"big": 2_500_001}, 1_000_000)

		big, _ := c.Lookup("big")
		unsized, _ := c.Lookup("unsized")
		assert.Equal(t, 3, c.SubJobsFor(big))
		assert.Equal(t, 3, c.SubJobsFor(unsized), "falls back to the category policy")

		c.SetSampleSizes(map[string]int64{"big": 2_500_001}, 0)
		assert.Equal(t, 3, c.SubJobsFor(big))
	})
}

func TestIsIgnored(t *testing.T) {
	mk := func(name string, cat Category) *Sample { return &Sample{Name: name, Category: cat} }
	wLight := mk("wl", WjetsLight)
	wB := mk("wb", WjetsB)
	hfor := mk("h0", HFOR0)
	data := mk("d", Data)
	qcd := mk("q", QCD)
	ttbar := mk("t", Ttbar)

	tests := []struct {
		name    string
		policy  IgnorePolicy
		ignored []*Sample
		kept    []*Sample
	}{
		{
			name:    "default ignores hfor outputs",
			ignored: []*Sample{hfor},
			kept:    []*Sample{wLight, wB, data, qcd, ttbar},
		},
		{
			name:    "hfor samples replace inclusive w+jets",
			policy:  IgnorePolicy{UseHforSamples: true},
			ignored: []*Sample{wLight, wB},
			kept:    []*Sample{hfor, data, ttbar},
		},
		{
			name:    "mc only",
			policy:  IgnorePolicy{MCOnly: true},
			ignored: []*Sample{data, qcd},
			kept:    []*Sample{ttbar, wLight},
		},
		{
			name:    "skip data-driven",
			policy:  IgnorePolicy{SkipDataDriven: true},
			ignored: []*Sample{qcd},
			kept:    []*Sample{data, ttbar},
		},
		{
			name:    "explicit names",
			policy:  IgnorePolicy{Names: []string{"t"}},
			ignored: []*Sample{ttbar},
			kept:    []*Sample{data},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCatalog()
			c.SetIgnorePolicy(tc.policy)
			for _, s := range tc.ignored {
				assert.True(t, c.IsIgnored(s), s.Name)
			}
			for _, s := range tc.kept {
				assert.False(t, c.IsIgnored(s), s.Name)
			}
		})
	}

	t.Run("unknown ignored names are reported", func(t *testing.T) {
		c := NewCatalog()
		c.SetIgnorePolicy(IgnorePolicy{Names: []string{"ghost"}})
		assert.ErrorIs(t, c.CheckIgnoreNames(), ErrUnknownSample)
	})
}

func TestCategories(t *testing.T) {
	c, err := ParseCategory("kTtbar")
	require.NoError(t, err)
	assert.Equal(t, Ttbar, c)

	c, err = ParseCategory("DATA_MUON")
	require.NoError(t, err)
	assert.Equal(t, MuonStream, c.Stream())
	assert.Equal(t, DataStream, c.Class())

	assert.Equal(t, DataDrivenEstimate, QCDEGamma.Class())
	assert.Equal(t, EGammaStream, QCDEGamma.Stream())
	assert.Equal(t, SignalProcess, Signal.Class())
	assert.Equal(t, NoStream, Ttbar.Stream())
	assert.Equal(t, "data-driven-estimate", DataDrivenEstimate.String())

	_, err = ParseCategory("unicorn")
	assert.ErrorIs(t, err, ErrInvalidSample)
	assert.Len(t, Categories(), 27)
}
