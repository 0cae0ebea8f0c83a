package source

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sc-provisioner/internal/entities"
)

// LoadSeed reads a YAML reference-data file and checks it is usable.
func LoadSeed(path string) (*entities.ReferenceSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed entities.ReferenceSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	if err := validateSeed(&seed); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	return &seed, nil
}

func validateSeed(seed *entities.ReferenceSeed) error {
	for _, p := range seed.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider without a name")
		}
		for _, pg := range p.PayGrades {
			if pg.Type == "" || pg.Name == "" {
				return fmt.Errorf("provider %s: pay grade needs a type and a name", p.Name)
			}
			if _, err := time.Parse(entities.DateLayout, pg.Effective); err != nil {
				return fmt.Errorf("provider %s: pay grade %s: effective must be %s", p.Name, pg.Name, entities.DateLayout)
			}
		}
	}
	return nil
}
