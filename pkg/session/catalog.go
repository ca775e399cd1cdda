package session

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog supplies the machine/part reference set sessions draw subjects from
type Catalog interface {
	Subjects(ctx context.Context) ([]Subject, error)
}

// SubjectList is a fixed catalog
type SubjectList []Subject

// Subjects returns a copy of the list
func (l SubjectList) Subjects(ctx context.Context) ([]Subject, error) {
	return append([]Subject(nil), l...), nil
}

// catalogFile is the YAML layout of a subject catalog:
//
//	machines:
//	  - model: 310SL Backhoe
//	    parts:
//	      - part_id: AT12345
//	        description: Hydraulic filter
//	        breadcrumb: Hydraulics > Filters > Return filter
type catalogFile struct {
	Machines []Machine `yaml:"machines"`
}

// FileCatalog is a catalog loaded from a YAML file
type FileCatalog struct {
	machines []Machine
}

// LoadFileCatalog reads and validates a YAML catalog
func LoadFileCatalog(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog. Every part needs an ID and a description
func ParseCatalog(data []byte) (*FileCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for _, machine := range file.Machines {
		if strings.TrimSpace(machine.Model) == "" {
			return nil, fmt.Errorf("catalog machine is missing a model")
		}
		for _, part := range machine.Parts {
			if strings.TrimSpace(part.PartID) == "" || strings.TrimSpace(part.Description) == "" {
				return nil, fmt.Errorf("catalog part on %s is missing part_id or description", machine.Model)
			}
		}
	}

	return &FileCatalog{machines: file.Machines}, nil
}

// Machines returns the machines in the catalog, e.g. for seeding a database
func (c *FileCatalog) Machines() []Machine {
	return c.machines
}

// Subjects flattens the catalog to one subject per (machine, part) pair
func (c *FileCatalog) Subjects(ctx context.Context) ([]Subject, error) {
	var subjects []Subject
	for _, machine := range c.machines {
		for _, part := range machine.Parts {
			subjects = append(subjects, Subject{
				MachineModel:    machine.Model,
				PartDescription: part.Description,
				PartID:          part.PartID,
				Breadcrumb:      part.Breadcrumb,
			})
		}
	}
	return subjects, nil
}
