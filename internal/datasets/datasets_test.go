package datasets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/transform"
)

func encodeCP932(s string) ([]byte, error) {
	return japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
}

func TestNewRegistersBuiltins(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"DPT"}, r.Keys())
}

func TestNewExtrasWinOverBuiltins(t *testing.T) {
	r, err := New(map[string]string{"DPT": "custom/dpt.yaml"})
	require.NoError(t, err)

	d, err := r.Get("DPT")
	require.NoError(t, err)
	assert.Nil(t, d.Legacy, "an explicit mapping file replaces the baked-in converter")
	assert.NotNil(t, d.Configured)
	assert.Equal(t, "custom/dpt.yaml", d.MappingFile)
}

func TestNewExtraAlongsideBuiltins(t *testing.T) {
	r, err := New(map[string]string{"STR": "mappings/str.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DPT", "STR"}, r.Keys())
}

// TestDptConvert runs the baked-in department converter against a CP932 row
// shaped like the real ALL file: 25 comma-separated columns, no header.
func TestDptConvert(t *testing.T) {
	cols := make([]string, 25)
	for i := range cols {
		cols[i] = ""
	}
	cols[1] = "20240101"
	cols[2] = "20231201"
	cols[7] = "001"
	cols[9] = "食品"
	cols[10] = "ｼｮｸﾋﾝ"
	cols[11] = "1"
	cols[12] = "0"
	cols[13] = "0"
	cols[23] = "20230101"
	cols[24] = "20240101"

	line := cols[0]
	for _, c := range cols[1:] {
		line += "," + c
	}
	encoded, err := encodeCP932(line + "\n")
	require.NoError(t, err)

	dir := t.TempDir()
	input := filepath.Join(dir, "dpt.all")
	require.NoError(t, os.WriteFile(input, encoded, 0o644))

	r, err := New(nil)
	require.NoError(t, err)
	d, err := r.Get("DPT")
	require.NoError(t, err)

	out := filepath.Join(dir, "out.csv")
	got, err := d.Convert("mappings", input, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		"MdScheduledModDate__c,MdMaintenanceCreateDate__c,DptCode__c,Name,DptNameKana__c,"+
			"InventoryUpdateTypeCode__c,TaxTypeLabelCode__c,NonSalesFlagCode__c,"+
			"MdRegistDate__c,MdModDate__c,OwnerId\n"+
			"20240101,20231201,001,食品,ｼｮｸﾋﾝ,1,0,0,20230101,20240101,\n",
		string(data))
}

func TestRegisterSkipsExistingKeys(t *testing.T) {
	r := transform.NewRegistry()
	require.NoError(t, r.Register(&transform.Descriptor{
		Key:    "DPT",
		Legacy: func(in, out string) (string, error) { return "custom", nil },
	}))

	require.NoError(t, Register(r))
	d, err := r.Get("DPT")
	require.NoError(t, err)

	got, err := d.Convert("", "", "")
	require.NoError(t, err)
	assert.Equal(t, "custom", got, "a pre-registered DPT must not be replaced")
}
