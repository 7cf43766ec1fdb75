package project

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// SaveJSON writes the project as a single structured-object file.
func SaveJSON(p *Project, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "project: marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "project: write json file")
	}
	return nil
}

// LoadJSON reads a structured-object project file.
func LoadJSON(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "project: read json file")
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "project: parse json file")
	}
	return &p, nil
}
