package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Descriptor{
		Key:    "DPT",
		Legacy: func(in, out string) (string, error) { return out, nil },
	}))
	require.NoError(t, r.Register(&Descriptor{
		Key:        "STR",
		Configured: Transform,
	}))

	d, err := r.Get("DPT")
	require.NoError(t, err)
	assert.Equal(t, "DPT", d.Key)

	assert.Equal(t, []string{"DPT", "STR"}, r.Keys())
}

func TestRegistryUnknownKeyListsAvailable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Descriptor{
		Key:    "DPT",
		Legacy: func(in, out string) (string, error) { return out, nil },
	}))

	_, err := r.Get("ITM")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dataset "ITM"`)
	assert.Contains(t, err.Error(), "DPT")
}

func TestRegistryRejectsBadDescriptors(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(&Descriptor{Legacy: func(in, out string) (string, error) { return out, nil }}),
		"missing key")
	assert.Error(t, r.Register(&Descriptor{Key: "X"}), "no transformer")
	assert.Error(t, r.Register(&Descriptor{
		Key:        "X",
		Legacy:     func(in, out string) (string, error) { return out, nil },
		Configured: Transform,
	}), "both conventions")

	require.NoError(t, r.Register(&Descriptor{Key: "DPT", Configured: Transform}))
	assert.Error(t, r.Register(&Descriptor{Key: "DPT", Configured: Transform}), "duplicate key")
}

func TestDescriptorConvertLegacy(t *testing.T) {
	var gotIn, gotOut string
	d := &Descriptor{
		Key: "DPT",
		Legacy: func(in, out string) (string, error) {
			gotIn, gotOut = in, out
			return out, nil
		},
	}

	result, err := d.Convert("mappings", "input.all", "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "out.csv", result)
	assert.Equal(t, "input.all", gotIn)
	assert.Equal(t, "out.csv", gotOut)
}

func TestDescriptorConvertConfiguredMissingMappingFile(t *testing.T) {
	d := &Descriptor{Key: "STR", Configured: Transform}

	mappingDir := filepath.Join(t.TempDir(), "mappings")
	_, err := d.Convert(mappingDir, "input.all", "out.csv")

	var cerr *ConfigNotFoundError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "STR", cerr.Key)
	assert.Equal(t, filepath.Join(mappingDir, "str.yaml"), cerr.Path)
	assert.Contains(t, cerr.Error(), "convert step")
}

func TestDescriptorConvertConfiguredLoadsSpec(t *testing.T) {
	dir := t.TempDir()
	mappingDir := filepath.Join(dir, "mappings")
	require.NoError(t, os.MkdirAll(mappingDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mappingDir, "str.yaml"), []byte(`
source_encoding: utf-8
mapping:
  - index: 0
    field: StoreCode__c
`), 0o644))

	input := filepath.Join(dir, "str.all")
	require.NoError(t, os.WriteFile(input, []byte("S01,Shibuya\n"), 0o644))

	d := &Descriptor{Key: "STR", Configured: Transform}
	out := filepath.Join(dir, "out.csv")
	result, err := d.Convert(mappingDir, input, out)
	require.NoError(t, err)
	assert.Equal(t, out, result)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "StoreCode__c\nS01\n", string(data))
}

func TestDescriptorResolveOutput(t *testing.T) {
	dir := t.TempDir()
	mappingDir := filepath.Join(dir, "mappings")
	require.NoError(t, os.MkdirAll(mappingDir, 0o755))
	declared := filepath.Join(dir, "declared", "str_ready.csv")
	require.NoError(t, os.WriteFile(filepath.Join(mappingDir, "str.yaml"), []byte(`
source_encoding: utf-8
mapping:
  - index: 0
    field: StoreCode__c
output_csv: `+declared+`
`), 0o644))

	d := &Descriptor{Key: "STR", Configured: Transform}

	// The spec's declared output wins over the computed default.
	got, err := d.ResolveOutput(mappingDir, "output", "")
	require.NoError(t, err)
	assert.Equal(t, declared, got)

	// An explicit override wins over the spec.
	got, err = d.ResolveOutput(mappingDir, "output", "explicit.csv")
	require.NoError(t, err)
	assert.Equal(t, "explicit.csv", got)

	// A legacy dataset has no spec and falls back to the default.
	legacy := &Descriptor{Key: "DPT", Legacy: func(in, out string) (string, error) { return out, nil }}
	got, err = legacy.ResolveOutput(mappingDir, "output", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("output", "DPT_upsert_ready.csv"), got)
}

func TestDescriptorResolveOutputMissingMappingFile(t *testing.T) {
	d := &Descriptor{Key: "STR", Configured: Transform}

	_, err := d.ResolveOutput(filepath.Join(t.TempDir(), "mappings"), "output", "")
	var cerr *ConfigNotFoundError
	require.ErrorAs(t, err, &cerr)
}

func TestDescriptorDefaultOutput(t *testing.T) {
	d := &Descriptor{Key: "DPT", OutputCSV: "output/Department_upsert_ready.csv"}
	assert.Equal(t, "output/Department_upsert_ready.csv", d.DefaultOutput("elsewhere"))

	d = &Descriptor{Key: "STR"}
	assert.Equal(t, filepath.Join("out", "STR_upsert_ready.csv"), d.DefaultOutput("out"))
}
