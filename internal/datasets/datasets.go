// Package datasets registers the built-in MD dataset converters. The registry
// is filled explicitly here at startup; nothing is discovered by scanning.
package datasets

import (
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/transform"
)

// dptSpec is the department master layout, baked in since before mapping
// files existed. Column numbers are zero-based positions in the ALL file.
var dptSpec = transform.MappingSpec{
	DatasetKey:     "DPT",
	SourceEncoding: "cp932",
	Mapping: []transform.ColumnMapping{
		{Index: idx(1), Field: "MdScheduledModDate__c"},
		{Index: idx(2), Field: "MdMaintenanceCreateDate__c"},
		{Index: idx(7), Field: "DptCode__c"},
		{Index: idx(9), Field: "Name"},
		{Index: idx(10), Field: "DptNameKana__c"},
		{Index: idx(11), Field: "InventoryUpdateTypeCode__c"},
		{Index: idx(12), Field: "TaxTypeLabelCode__c"},
		{Index: idx(13), Field: "NonSalesFlagCode__c"},
		{Index: idx(23), Field: "MdRegistDate__c"},
		{Index: idx(24), Field: "MdModDate__c"},
	},
	// Left blank so Salesforce assigns the default owner.
	OwnerIDColumn: "OwnerId",
}

// Register adds every built-in dataset to r. Keys already present win; an
// explicit mapping file on the command line overrides the baked-in converter.
func Register(r *transform.Registry) error {
	builtins := []*transform.Descriptor{
		{
			Key:       "DPT",
			OutputCSV: "output/Department_upsert_ready.csv",
			Legacy: func(inputPath, outputPath string) (string, error) {
				return transform.Transform(inputPath, &dptSpec, outputPath)
			},
		},
	}
	for _, d := range builtins {
		if _, err := r.Get(d.Key); err == nil {
			continue
		}
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// New returns a registry with one configured dataset per extra (key, mapping
// file) pair, plus the built-in datasets for keys the extras did not claim.
func New(extra map[string]string) (*transform.Registry, error) {
	r := transform.NewRegistry()
	for key, mappingFile := range extra {
		d := &transform.Descriptor{
			Key:         key,
			MappingFile: mappingFile,
			Configured:  transform.Transform,
		}
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

func idx(i int) *int { return &i }
