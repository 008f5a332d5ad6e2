package assemble

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIngestReports(t *testing.T) {
	dir := t.TempDir()
	success := []byte("sf__Id,sf__Created,DptCode__c\n001,true,0001\n")
	failed := []byte("sf__Error,DptCode__c\nDUPLICATE_VALUE,0002\n")

	paths, err := WriteIngestReports(dir, "750yy2", "DPT", success, failed)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "750yy2_DPT_success.csv"), paths.Success)
	assert.Equal(t, filepath.Join(dir, "750yy2_DPT_success_raw.csv"), paths.SuccessRaw)
	assert.Equal(t, filepath.Join(dir, "750yy2_DPT_error.csv"), paths.Error)
	assert.Equal(t, filepath.Join(dir, "750yy2_DPT_error_raw.csv"), paths.ErrorRaw)

	raw, err := os.ReadFile(paths.SuccessRaw)
	require.NoError(t, err)
	assert.Equal(t, success, raw, "raw variant is byte-faithful, no BOM")

	portable, err := os.ReadFile(paths.Success)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, portable[:3], "portable variant starts with a BOM")
	assert.Equal(t, "sf__Id,sf__Created,DptCode__c\r\n001,true,0001\r\n", string(portable[3:]))
}

func TestWriteIngestReportsEmptyReportsStillWriteFiles(t *testing.T) {
	dir := t.TempDir()

	paths, err := WriteIngestReports(dir, "750yy2", "DPT", nil, []byte{})
	require.NoError(t, err)

	for _, p := range []string{paths.Success, paths.SuccessRaw, paths.Error, paths.ErrorRaw} {
		info, err := os.Stat(p)
		require.NoError(t, err, "file presence is the completion signal")
		assert.Zero(t, info.Size())
	}
}

func TestWriteIngestReportsCRLFInputNotDoubled(t *testing.T) {
	dir := t.TempDir()
	report := []byte("a,b\r\n1,2\r\n")

	paths, err := WriteIngestReports(dir, "750yy2", "DPT", report, nil)
	require.NoError(t, err)

	portable, err := os.ReadFile(paths.Success)
	require.NoError(t, err)
	assert.Equal(t, "a,b\r\n1,2\r\n", string(portable[3:]))
}

func TestWriteIngestReportsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	junk := []byte{0x83, 0x65, 0x83, 0x58} // CP932 bytes, not UTF-8

	tests := []struct {
		name       string
		successful []byte
		failed     []byte
		wantKind   string
	}{
		{name: "bad success report", successful: junk, failed: nil, wantKind: "success"},
		{name: "bad error report", successful: nil, failed: junk, wantKind: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WriteIngestReports(dir, "750yy2", "DPT", tt.successful, tt.failed)
			var derr *ResultDecodeError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.wantKind, derr.Kind)
		})
	}
}
