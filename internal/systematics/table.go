package systematics

import "fmt"

// TableVersion identifies the layout of the static table. Consumers zip
// breakdown families against external coefficient lists by position, so any
// reordering must bump this version.
const TableVersion = 1

// StaticCount is the number of variations in the static table.
var StaticCount = len(staticTable)

var staticTable = buildStaticTable()

var jesComponents = []string{
	"BJesUnc",
	"EtaIntercalibrationModel",
	"EtaIntercalibrationTotalStat",
	"JesEffectiveDet1", "JesEffectiveDet2", "JesEffectiveDet3",
	"JesEffectiveMix1", "JesEffectiveMix2", "JesEffectiveMix3", "JesEffectiveMix4",
	"JesEffectiveModel1", "JesEffectiveModel2", "JesEffectiveModel3", "JesEffectiveModel4",
	"JesEffectiveStat1", "JesEffectiveStat2", "JesEffectiveStat3", "JesEffectiveStat4",
	"Pileup_OffsetMu", "Pileup_OffsetNPV", "Pileup_Pt", "Pileup_Rho",
	"SinglePart",
	"flavor_comp",
	"flavor_response",
	"PunchThrough",
}

type tableBuilder struct {
	rows []Variation
}

func (t *tableBuilder) add(name string, kind Kind, groups Group) {
	t.addFlavour(name, kind, groups, AnyFlavour)
}

func (t *tableBuilder) addFlavour(name string, kind Kind, groups Group, fl Flavour) {
	t.rows = append(t.rows, Variation{
		ID:          ID(len(t.rows)),
		Name:        name,
		Groups:      groups,
		Kind:        kind,
		Flavour:     fl,
		FamilyIndex: -1,
	})
}

// family adds the head variation followed by its n ordered components.
func (t *tableBuilder) family(prefix, dir string, n int) {
	head := fmt.Sprintf("%s_%s", prefix, dir)
	t.add(head, KindScaleFactor, GroupScaleFactors)
	for i := 0; i < n; i++ {
		t.rows = append(t.rows, Variation{
			ID:          ID(len(t.rows)),
			Name:        fmt.Sprintf("%s_break%d_%s", prefix, i, dir),
			Groups:      GroupBTagEV,
			Kind:        KindBTagEV,
			Family:      head,
			FamilyIndex: i,
		})
	}
}

func buildStaticTable() []Variation {
	var t tableBuilder

	t.add("nominal", KindNominal, GroupNominal)

	// jets
	t.add("jeff", KindDetector, GroupDefaultSyst)
	t.add("jer", KindDetector, GroupDefaultSyst)
	t.add("jes_down", KindDetector, GroupJES)
	t.add("jes_up", KindDetector, GroupJES)
	t.add("jvf_down", KindDetector, GroupDefaultSyst)
	t.add("jvf_up", KindDetector, GroupDefaultSyst)

	// electrons
	for _, n := range []string{"eer_down", "eer_up", "ees_down", "ees_up"} {
		t.addFlavour(n, KindDetector, GroupDefaultSyst, ElectronOnly)
	}

	// muons
	for _, n := range []string{"muid_res", "mums_res", "musc_down", "musc_up"} {
		t.addFlavour(n, KindDetector, GroupDefaultSyst, MuonOnly)
	}

	// missing Et soft terms
	for _, n := range []string{"res_soft_down", "res_soft_up", "sc_soft_down", "sc_soft_up"} {
		t.add(n, KindDetector, GroupDefaultSyst)
	}

	for _, c := range jesComponents {
		t.add(c+"_down", KindJESComponent, GroupJESCompOnly)
		t.add(c+"_up", KindJESComponent, GroupJESCompOnly)
	}

	for _, n := range []string{"lepRecoSF", "lepIdSF", "lepTrigSF"} {
		t.add(n+"_down", KindScaleFactor, GroupScaleFactors)
		t.add(n+"_up", KindScaleFactor, GroupScaleFactors)
	}

	// Order is load-bearing: the components are zipped by position against
	// the eigenvector coefficients of the tagging calibration.
	t.family("btagSF", "up", 9)
	t.family("btagSF", "down", 9)
	t.family("ctagSF", "up", 7)
	t.family("ctagSF", "down", 7)
	t.family("mistagSF", "up", 12)
	t.family("mistagSF", "down", 12)

	sampleSyst := map[string]bool{
		"WtDS": true, "MCatNLO_wt": true, "MCatNLO_ttbar": true,
		"aMCatNLO_tchan": true, "aMCatNLO_schan": true,
		"RadHi_ttbar": true, "RadLo_ttbar": true,
		"ScaleVar1": true, "ScaleVar2": true, "ScaleVar3": true,
		"ScaleVar4": true, "ScaleVar5": true, "ScaleVar6": true,
	}
	for _, n := range []string{
		"WtDS",
		"MCatNLO", "MCatNLO_SgTop", "MCatNLO_tchan", "MCatNLO_schan", "MCatNLO_wt", "MCatNLO_ttbar",
		"aMCatNLO_tchan", "aMCatNLO_schan",
		"ISRFSR_ttbar_More", "ISRFSR_ttbar_Less",
		"RadHi_ttbar", "RadLo_ttbar",
		"ScaleVar1", "ScaleVar2", "ScaleVar3", "ScaleVar4", "ScaleVar5", "ScaleVar6",
		"ScaleVar_tchan1", "ScaleVar_tchan2", "ScaleVar_tchan3", "ScaleVar_tchan4",
		"WjetsGen",
		"PowhegPythia_t", "PowhegPythia2011C_t", "PowhegHerwig_t",
	} {
		var g Group
		if sampleSyst[n] {
			g = GroupSampleSyst
		}
		t.add(n, KindSample, g)
	}

	t.add("Pdf_down", KindWeight, 0)
	t.add("Pdf_up", KindWeight, 0)

	t.add("LEP_FAKE_BDECAYGEN_SHAPE", KindFake, GroupMultiLeptonFakes)

	return t.rows
}
