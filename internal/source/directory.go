// Package source loads the static directory of UK construction publications from YAML.
package source

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/buildwellai/news-scraper/internal/model"
)

type directoryFile struct {
	Sources []model.Source `yaml:"sources"`
}

// Load reads the source directory. The directory is validated once here and
// treated as immutable afterwards.
func Load(path string) ([]model.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	seen := map[string]bool{}
	for _, src := range file.Sources {
		if src.ID == "" || src.Organisation == "" {
			return nil, fmt.Errorf("source %q: id and organisation are required", src.ID)
		}
		if seen[src.ID] {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
	}

	return file.Sources, nil
}

// Eligible returns the sources that take part in a scraping run.
func Eligible(sources []model.Source) []model.Source {
	return lo.Filter(sources, func(s model.Source, _ int) bool {
		return s.HasFeed()
	})
}
