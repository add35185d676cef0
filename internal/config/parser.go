package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/go-cumin/cumin/pkg/cuminerr"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads and validates the configuration file at path, then loads
// the aliases.yaml file sitting next to it, if any, exactly as the
// original project's cumin.Config does.
func Load(path string) (*Config, Aliases, error) {
	cfg, err := parseConfig(path)
	if err != nil {
		return nil, nil, err
	}

	aliases, err := parseAliases(filepath.Join(filepath.Dir(path), "aliases.yaml"))
	if err != nil {
		return nil, nil, err
	}

	return cfg, aliases, nil
}

func parseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cuminerr.NewConfigError(fmt.Sprintf("reading %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cuminerr.NewParseError(path, extractLine(err), err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// parseAliases loads path as a flat name->query-string map. A missing
// file is not an error: aliases.yaml is optional.
func parseAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Aliases{}, nil
		}
		return nil, cuminerr.NewConfigError(fmt.Sprintf("reading %s", path), err)
	}

	var aliases Aliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, cuminerr.NewParseError(path, extractLine(err), err)
	}
	if aliases == nil {
		aliases = Aliases{}
	}
	return aliases, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
