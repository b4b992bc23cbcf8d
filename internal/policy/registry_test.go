package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUnknownPolicy(t *testing.T) {
	_, err := Build("mixup", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixup")
}

func TestBuildRejectsUnknownParams(t *testing.T) {
	_, err := Build("colout", Params{"p_row": 0.2, "p_rows": 0.3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p_rows")
}

func TestBuildRejectsIllTypedParams(t *testing.T) {
	_, err := Build("colout", Params{"p_row": "lots"})
	assert.Error(t, err)

	_, err = Build("cutout", Params{"length": 2.5})
	assert.Error(t, err)
}

func TestBuildDefaults(t *testing.T) {
	p, err := Build("colout", nil)
	require.NoError(t, err)
	co := p.(*ColOut)
	assert.Equal(t, 0.15, co.PRow)
	assert.Equal(t, 0.15, co.PCol)

	p, err = Build("progressive_resizing", Params{"initial_scale": 0.25})
	require.NoError(t, err)
	pr := p.(*ProgressiveResizing)
	assert.Equal(t, 0.25, pr.InitialScale)
	assert.Equal(t, 0.2, pr.FinetuneFraction)
}

func TestBuildAcceptsIntegerForFloat(t *testing.T) {
	// YAML often decodes whole numbers as ints.
	p, err := Build("label_smoothing", Params{"alpha": 0.2, "classes": 10})
	require.NoError(t, err)
	assert.Equal(t, 10, p.(*LabelSmoothing).Classes)
}

func TestKnownContainsBuiltins(t *testing.T) {
	known := Known()
	for _, name := range []string{"blurpool", "colout", "cutout", "label_smoothing", "progressive_resizing"} {
		assert.Contains(t, known, name)
	}
}

func TestBuildValidatesRanges(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"colout", Params{"p_row": 1.0}},
		{"cutout", Params{"length": 0}},
		{"progressive_resizing", Params{"initial_scale": 0.0}},
		{"progressive_resizing", Params{"finetune_fraction": 1.0}},
		{"label_smoothing", Params{"alpha": 1.0, "classes": 10}},
		{"label_smoothing", Params{"alpha": 0.1, "classes": 1}},
	}
	for _, tc := range cases {
		_, err := Build(tc.name, tc.params)
		assert.Error(t, err, "%s %v", tc.name, tc.params)
	}
}
