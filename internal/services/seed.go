package services

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of a services bootstrap file.
type seedFile struct {
	Services []seedEntry `yaml:"services"`
}

type seedEntry struct {
	Kind             string `yaml:"kind"`
	Name             string `yaml:"name"`
	BaseURL          string `yaml:"baseUrl"`
	APIKey           string `yaml:"apiKey"`
	Enabled          bool   `yaml:"enabled"`
	Priority         int    `yaml:"priority"`
	MaxResults       int    `yaml:"maxResults"`
	QualityProfileID int    `yaml:"qualityProfileId"`
	RootFolder       string `yaml:"rootFolder"`
}

// ImportSeed loads service configurations from a YAML file into an empty
// store. It is a no-op when the file does not exist or when services are
// already configured, so an operator's dashboard edits are never clobbered.
func (st *Store) ImportSeed(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	count, err := st.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		st.logger.Debug().Str("path", path).Msg("Services already configured, skipping seed import")
		return nil
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	imported := 0
	for _, entry := range seed.Services {
		svc := &Service{
			Kind:             Kind(entry.Kind),
			Name:             entry.Name,
			BaseURL:          entry.BaseURL,
			APIKey:           entry.APIKey,
			Enabled:          entry.Enabled,
			Priority:         entry.Priority,
			MaxResults:       entry.MaxResults,
			QualityProfileID: entry.QualityProfileID,
			RootFolder:       entry.RootFolder,
		}
		if _, err := st.Create(ctx, svc); err != nil {
			st.logger.Warn().Err(err).Str("kind", entry.Kind).Msg("Skipping invalid seed entry")
			continue
		}
		imported++
	}

	st.logger.Info().Int("imported", imported).Str("path", path).Msg("Imported service seed file")
	return nil
}
