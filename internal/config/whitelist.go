package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Whitelist is the on-disk shape of a whitelist file: a flat list of
// target ports the path pattern is allowed to resolve to. With no
// whitelist file configured there is no restriction — every port the
// pattern can produce is allowed; a file that lists no ports allows none.
type Whitelist struct {
	Ports []int `yaml:"ports"`
}

// LoadWhitelist reads and parses a YAML whitelist file, grounded on
// balookrd-outline-cli-ws's LoadGlobalConfig (read file, unmarshal).
// An empty path returns a nil map (no restriction); a missing or
// unreadable file, or an out-of-range port, is a ConfigurationError.
func LoadWhitelist(path string) (map[int]bool, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigurationError{Field: "whitelist_file", Err: err}
		}
		return nil, &ConfigurationError{Field: "whitelist_file", Err: err}
	}

	var wl Whitelist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, &ConfigurationError{Field: "whitelist_file", Err: fmt.Errorf("parsing %s: %w", path, err)}
	}

	allowed := make(map[int]bool, len(wl.Ports))
	for _, p := range wl.Ports {
		if p <= 0 || p > 65535 {
			return nil, &ConfigurationError{Field: "whitelist_file", Err: fmt.Errorf("invalid port %d", p)}
		}
		allowed[p] = true
	}
	return allowed, nil
}
