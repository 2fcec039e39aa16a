package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryCategories(t *testing.T) {
	reg := Default()

	var single []string
	for _, d := range reg.List(SingleMic) {
		single = append(single, d.Name)
	}
	assert.Equal(t, []string{"ami-sdm", "ami-ihm-mix", "notsofar-sdm", "librispeech", "librimix"}, single)

	var multi []string
	for _, d := range reg.List(MultiMic) {
		multi = append(multi, d.Name)
	}
	assert.Equal(t, []string{"ami-mdm", "notsofar-mdm"}, multi)
}

func TestVariantsDerivedFromName(t *testing.T) {
	reg := Default()
	cases := map[string]string{
		"ami-sdm":      "sdm",
		"ami-ihm-mix":  "ihm-mix",
		"notsofar-mdm": "mdm",
		"librispeech":  "librispeech",
		"librimix":     "librimix",
	}
	for name, want := range cases {
		desc, err := reg.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, want, desc.Tag(), name)
	}
}

func TestDependencyOf(t *testing.T) {
	reg := Default()

	dep, ok, err := reg.DependencyOf("librimix")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "librispeech", dep.Name)

	_, ok, err = reg.DependencyOf("ami-sdm")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupUnknownListsValidNames(t *testing.T) {
	reg := Default()
	_, err := reg.Lookup("nope")

	var unknown *UnknownError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Name)
	assert.Contains(t, unknown.Valid, "ami-sdm")
	assert.Contains(t, err.Error(), "librimix")
	assert.False(t, reg.IsKnown("nope"))

	_, err = reg.CategoryOf("nope")
	require.True(t, errors.As(err, &unknown))
}

func TestValidateRejectsUnsupportedVariant(t *testing.T) {
	desc := Descriptor{Name: "ami-xyz", Family: FamilyAMI, Category: SingleMic, Variant: "xyz", Splits: []string{"train"}}
	var variantErr *VariantError
	require.True(t, errors.As(desc.Validate(), &variantErr))
	assert.Equal(t, []string{"sdm", "mdm", "ihm-mix"}, variantErr.Valid)

	_, err := NewRegistry(desc)
	require.Error(t, err)
}

func TestNewRegistryRejectsDanglingDependency(t *testing.T) {
	desc := Descriptor{Name: "librimix", Family: FamilyLibriMix, Category: SingleMic, Splits: []string{"train"}, DependsOn: "librispeech"}
	_, err := NewRegistry(desc)
	require.Error(t, err)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	desc := newDescriptor("ami-sdm", FamilyAMI, SingleMic, []string{"train"})
	_, err := NewRegistry(desc, desc)
	require.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Multi-Mic ")
	require.NoError(t, err)
	assert.Equal(t, MultiMic, c)

	_, err = ParseCategory("stereo")
	require.Error(t, err)
}

func TestLibriMixSourceSplits(t *testing.T) {
	desc, err := Default().Lookup("librimix")
	require.NoError(t, err)
	assert.Equal(t, "dev-clean", desc.SourceSplits["dev"])

	_, err = NewRegistry(
		Descriptor{Name: "librispeech", Family: FamilyLibriSpeech, Category: SingleMic, Splits: []string{"dev-clean"}},
		Descriptor{Name: "librimix", Family: FamilyLibriMix, Category: SingleMic, Splits: []string{"dev"},
			DependsOn: "librispeech", SourceSplits: map[string]string{"dev": "test-other"}},
	)
	require.Error(t, err)
}

func TestTerminalManifests(t *testing.T) {
	desc, err := Default().Lookup("ami-sdm")
	require.NoError(t, err)
	refs := desc.Terminal()
	require.Len(t, refs, 6)
	assert.Equal(t, "ami/ami-sdm_cutset_train", refs[0].String())
	assert.Equal(t, "ami/ami-sdm_supervisions_train", refs[1].String())
}
