package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LegacyTransformer is the historical two-argument converter convention: the
// mapping is baked into the function itself.
type LegacyTransformer func(inputPath, outputPath string) (string, error)

// ConfiguredTransformer is the generic convention driven by an external
// mapping spec.
type ConfiguredTransformer func(inputPath string, spec *MappingSpec, outputPath string) (string, error)

// ConfigNotFoundError means a configured dataset has no mapping file on disk.
// The expected path is part of the operator contract: run the convert step
// with an explicit --mapping first, or put the file where the error says.
type ConfigNotFoundError struct {
	Key  string
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no mapping file for dataset %s: expected %s (run the convert step with an explicit mapping file first)", e.Key, e.Path)
}

// Descriptor registers one dataset: which converter convention it uses plus
// the job metadata the ingest pipeline needs. Exactly one of Legacy or
// Configured must be set.
type Descriptor struct {
	Key             string
	SFObject        string
	Operation       string
	ExternalIDField string
	OutputCSV       string
	MappingFile     string

	Legacy     LegacyTransformer
	Configured ConfiguredTransformer
}

// Convert invokes the dataset's transformer with whichever convention it
// declared. For configured datasets the mapping spec is loaded from
// MappingFile, defaulting to {mappingDir}/{key}.yaml.
func (d *Descriptor) Convert(mappingDir, inputPath, outputPath string) (string, error) {
	switch {
	case d.Legacy != nil:
		return d.Legacy(inputPath, outputPath)
	case d.Configured != nil:
		spec, err := d.loadSpec(mappingDir)
		if err != nil {
			return "", err
		}
		return d.Configured(inputPath, spec, outputPath)
	default:
		return "", fmt.Errorf("dataset %s has no transformer", d.Key)
	}
}

// Spec loads the dataset's mapping spec, for callers that need its metadata
// without running a conversion. Legacy datasets have none.
func (d *Descriptor) Spec(mappingDir string) (*MappingSpec, error) {
	if d.Configured == nil {
		return nil, nil
	}
	return d.loadSpec(mappingDir)
}

func (d *Descriptor) loadSpec(mappingDir string) (*MappingSpec, error) {
	path := d.MappingFile
	if path == "" {
		path = filepath.Join(mappingDir, strings.ToLower(d.Key)+".yaml")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigNotFoundError{Key: d.Key, Path: path}
	}
	return LoadSpec(path)
}

// DefaultOutput returns where the normalized CSV for this dataset lands when
// the caller does not override it.
func (d *Descriptor) DefaultOutput(outputDir string) string {
	if d.OutputCSV != "" {
		return d.OutputCSV
	}
	return filepath.Join(outputDir, d.Key+"_upsert_ready.csv")
}

// ResolveOutput picks the normalized CSV path: an explicit override wins,
// then the mapping spec's declared output_csv, then DefaultOutput.
func (d *Descriptor) ResolveOutput(mappingDir, outputDir, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	spec, err := d.Spec(mappingDir)
	if err != nil {
		return "", err
	}
	if spec != nil && spec.OutputCSV != "" {
		return spec.OutputCSV, nil
	}
	return d.DefaultOutput(outputDir), nil
}

// Registry maps dataset keys to transformer descriptors. It is populated
// explicitly at startup; nothing is discovered by scanning.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{datasets: make(map[string]*Descriptor)}
}

func (r *Registry) Register(d *Descriptor) error {
	if d.Key == "" {
		return fmt.Errorf("dataset descriptor has no key")
	}
	if (d.Legacy == nil) == (d.Configured == nil) {
		return fmt.Errorf("dataset %s must set exactly one of Legacy or Configured", d.Key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.datasets[d.Key]; exists {
		return fmt.Errorf("dataset already registered: %s", d.Key)
	}
	r.datasets[d.Key] = d
	return nil
}

func (r *Registry) Get(key string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.datasets[key]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q, available: %s", key, strings.Join(r.keysLocked(), ", "))
	}
	return d, nil
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

func (r *Registry) keysLocked() []string {
	keys := make([]string, 0, len(r.datasets))
	for k := range r.datasets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
