package systematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	r, err := New("EL_SF_ID_UP")
	require.NoError(t, err)

	sel, err := r.Select(GroupNominal|GroupJES, "btagSF_break2_up", "EL_SF_ID_UP")
	require.NoError(t, err)

	names := namesOf(t, r, sel.IDs())
	assert.Equal(t, []string{"nominal", "jes_down", "jes_up", "btagSF_break2_up", "EL_SF_ID_UP"}, names)
	assert.Len(t, sel.Variations(), 5)
	assert.Equal(t, GroupNominal|GroupJES, sel.Groups())
}

func TestSelectUnknownNames(t *testing.T) {
	r := Default()

	_, err := r.Select(GroupNominal, "Bogus", "AlsoBogus")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSystematic)
	assert.ErrorContains(t, err, "Bogus")
	assert.ErrorContains(t, err, "AlsoBogus")
}

// IsSelected(s) under G holds iff GroupsOf(s)&G != 0 or s was named.
func TestSelectionCorrectness(t *testing.T) {
	r := Default()
	masks := []Group{
		0,
		GroupNominal,
		GroupNominal | GroupJES,
		GroupAllDefault,
		GroupAllJESComp,
		GroupBTagEV | GroupSampleSyst,
		GroupAll | GroupMultiLeptonFakes,
	}
	explicit := []string{"Pdf_up", "ScaleVar_tchan1"}

	for _, g := range masks {
		sel, err := r.Select(g, explicit...)
		require.NoError(t, err)
		named := make(map[ID]bool)
		for _, n := range explicit {
			id, _ := r.Resolve(n)
			named[id] = true
		}
		for _, v := range r.All() {
			want := r.GroupsOf(v.ID)&g != 0 || named[v.ID]
			assert.Equal(t, want, sel.IsSelected(v.ID), "group=%s variation=%s", g, v.Name)
		}
	}
}
