package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"tripcast-service/internal/domain/entity"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var defaultCatalog string

// LoadCatalog reads the model catalog from path, or the embedded default when
// path is empty. The cost target from the environment wins over the file's.
func LoadCatalog(path string, costTargetUSD float64) (*entity.ModelCatalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model catalog: %w", err)
		}
		data = string(raw)
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	if costTargetUSD > 0 {
		catalog.CostTargetUSD = costTargetUSD
	}
	return catalog, nil
}

// ParseCatalog decodes and validates a TOML catalog
func ParseCatalog(data string) (*entity.ModelCatalog, error) {
	var catalog entity.ModelCatalog
	meta, err := toml.Decode(data, &catalog)
	if err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("model catalog has unknown keys: %v", undecoded)
	}

	if len(catalog.Generative) == 0 {
		return nil, fmt.Errorf("model catalog %q has no generative providers", catalog.Version)
	}
	if catalog.LastResortModel == "" {
		return nil, fmt.Errorf("model catalog %q has no last_resort_model", catalog.Version)
	}
	for _, group := range [][]entity.ProviderDescriptor{catalog.Generative, catalog.Search, catalog.Scrapers, catalog.Booking} {
		seen := make(map[string]bool)
		for _, d := range group {
			if d.Name == "" {
				return nil, fmt.Errorf("model catalog %q has a provider without a name", catalog.Version)
			}
			if seen[d.Name] {
				return nil, fmt.Errorf("model catalog %q lists provider %q twice", catalog.Version, d.Name)
			}
			seen[d.Name] = true
		}
	}

	for _, group := range [][]entity.ProviderDescriptor{catalog.Generative, catalog.Search, catalog.Scrapers, catalog.Booking} {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Priority < group[j].Priority })
	}
	return &catalog, nil
}
