// Package schemas embeds the JSON Schema documents of the configuration file
// and of the JSON screening report.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names.
const (
	Config = "config.schema.json"
	Report = "report.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the raw schema document called name.
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	return data, nil
}

// Names lists the embedded schema files.
func Names() []string {
	entries, _ := files.ReadDir(".")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}
