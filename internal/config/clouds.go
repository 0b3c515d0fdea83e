package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint is one named platform endpoint users can connect to by name
// instead of spelling out the API URL.
type Endpoint struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Catalog is the set of known platform endpoints. A clouds file replaces the
// built-in catalog entirely.
type Catalog struct {
	Clouds []Endpoint `yaml:"clouds" json:"clouds"`
}

// builtinCatalog mirrors the endpoints the IDE plugin shipped with.
var builtinCatalog = Catalog{
	Clouds: []Endpoint{
		{Name: "pivotal", URL: "https://api.run.pivotal.io", Description: "Pivotal Web Services"},
		{Name: "local", URL: "https://api.local.pcfdev.io", Description: "Local PCF Dev instance"},
	},
}

// LoadCatalog reads the endpoint catalog from path, or returns the built-in
// catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		c := builtinCatalog
		return &c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clouds file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse clouds file %s: %w", path, err)
	}
	for _, e := range c.Clouds {
		if e.Name == "" || e.URL == "" {
			return nil, fmt.Errorf("clouds file %s: every entry needs a name and a url", path)
		}
	}
	return &c, nil
}

// Lookup returns the endpoint registered under name.
func (c *Catalog) Lookup(name string) (Endpoint, bool) {
	for _, e := range c.Clouds {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}
