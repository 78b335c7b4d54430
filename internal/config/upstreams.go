package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type upstreamsFile struct {
	Upstreams map[string]string `yaml:"upstreams"`
}

// LoadUpstreams reads a YAML file of the form
//
//	upstreams:
//	  marge: https://streaming.example
//
// Names are lower-cased; target validation happens in the gateway.
func LoadUpstreams(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upstreams file: %w", err)
	}
	return ParseUpstreams(data)
}

func ParseUpstreams(data []byte) (map[string]string, error) {
	var f upstreamsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse upstreams file: %w", err)
	}

	out := make(map[string]string, len(f.Upstreams))
	for name, base := range f.Upstreams {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("upstream %q: invalid base URL %q", name, base)
		}
		out[strings.ToLower(strings.TrimSpace(name))] = base
	}
	return out, nil
}
