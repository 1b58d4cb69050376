package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTemplateRender(t *testing.T) {
	p := Placeholders{
		InputFiles:      []string{"/in/a.root", "/in/b.root"},
		OutputFile:      "/tmp/out.root",
		SubJob:          2,
		SubJobs:         3,
		Sample:          "MCB",
		Systematic:      "jes_up",
		InputSystematic: "jes_up",
		JetBin:          "2",
		Channel:         "enu",
		Stage:           "analysis",
		XSection:        1.5,
	}

	testCases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "basic placeholders",
			src:  "analysis -i ${input_files} -o ${output_file} -j ${sub_job}/${sub_jobs}",
			want: "analysis -i /in/a.root,/in/b.root -o /tmp/out.root -j 2/3",
		},
		{
			name: "escaped shell variable",
			src:  "cd $${HOME} && run ${sample}",
			want: "cd ${HOME} && run MCB",
		},
		{
			name: "functions",
			src:  `run ${upper(channel)} ${join(" ", input_list)} ${replace(systematic, "_", "-")}`,
			want: "run ENU /in/a.root /in/b.root jes-up",
		},
		{
			name: "numbers and trailing newline",
			src:  "run --xsec ${xsec} --jets ${jet_bin} --stage ${stage} --in ${input_systematic}\n",
			want: "run --xsec 1.5 --jets 2 --stage analysis --in jes_up",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmpl, err := ParseRunTemplate("run.tmpl", []byte(tc.src))
			require.NoError(t, err)
			got, err := tmpl.Render(p)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRunTemplateErrors(t *testing.T) {
	t.Run("unknown placeholder", func(t *testing.T) {
		_, err := ParseRunTemplate("run.tmpl", []byte("run ${sample}\nrun ${inputs}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `run.tmpl:2: unknown placeholder "inputs"`)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := ParseRunTemplate("run.tmpl", []byte("run ${sample"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse run template run.tmpl")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRunTemplate(filepath.Join(t.TempDir(), "missing.tmpl"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty input list", func(t *testing.T) {
		tmpl, err := ParseRunTemplate("run.tmpl", []byte(`run [${join(",", input_list)}]`))
		require.NoError(t, err)
		got, err := tmpl.Render(Placeholders{})
		require.NoError(t, err)
		assert.Equal(t, "run []", got)
	})
}
