// Package seed loads the room and medication catalogs from a YAML file.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/obstetric/obstetric/internal/domain/medication"
	"github.com/obstetric/obstetric/internal/domain/rooms"
)

type Room struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type Medication struct {
	Name         string `yaml:"name"`
	Presentation string `yaml:"presentation"`
	DefaultDose  string `yaml:"default_dose"`
	Route        string `yaml:"route"`
}

type Catalog struct {
	Rooms       []Room       `yaml:"rooms"`
	Medications []Medication `yaml:"medications"`
}

// RoomUpserter is satisfied by *rooms.Service.
type RoomUpserter interface {
	Upsert(ctx context.Context, r *rooms.Room) error
}

// MedicationUpserter is satisfied by *medication.Service.
type MedicationUpserter interface {
	UpsertMedication(ctx context.Context, m *medication.Medication) error
}

// Result counts the entries written by Apply.
type Result struct {
	Rooms       int
	Medications int
}

func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return &c, nil
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Apply upserts every entry. Rooms are keyed by code and medications by
// name, so running it twice is harmless.
func Apply(ctx context.Context, c *Catalog, rs RoomUpserter, ms MedicationUpserter) (Result, error) {
	var res Result
	for i, r := range c.Rooms {
		room := &rooms.Room{Code: r.Code, Name: r.Name, Kind: r.Kind}
		if err := rs.Upsert(ctx, room); err != nil {
			return res, fmt.Errorf("room %d (%s): %w", i, r.Code, err)
		}
		res.Rooms++
	}
	for i, m := range c.Medications {
		med := &medication.Medication{
			Name:         m.Name,
			Presentation: optional(m.Presentation),
			DefaultDose:  optional(m.DefaultDose),
			Route:        optional(m.Route),
			Active:       true,
		}
		if err := ms.UpsertMedication(ctx, med); err != nil {
			return res, fmt.Errorf("medication %d (%s): %w", i, m.Name, err)
		}
		res.Medications++
	}
	return res, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
