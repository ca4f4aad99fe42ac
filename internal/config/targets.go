package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"deltawatch/internal/domain/entity"
)

// targetsFile is the YAML layout of TARGETS_FILE:
//
//	targets:
//	  - name: rotterdam
//	    url: https://www.pararius.nl/huurwoningen/rotterdam
//	    kind: html
//	    scraper:
//	      item_selector: li.search-list__item--listing
//	      url_selector: a.listing-search-item__link
//	      url_prefix: https://www.pararius.nl
type targetsFile struct {
	Targets []entity.Target `yaml:"targets"`
}

// LoadTargets reads and validates a targets file. Target names must be unique.
func LoadTargets(path string) ([]entity.Target, error) {
	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return ParseTargets(data)
}

// ParseTargets decodes and validates targets from YAML.
func ParseTargets(data []byte) ([]entity.Target, error) {
	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}
	if len(file.Targets) == 0 {
		return nil, errors.New("targets file lists no targets")
	}

	seen := make(map[string]struct{}, len(file.Targets))
	for i := range file.Targets {
		t := &file.Targets[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return file.Targets, nil
}
