// Package catalog seeds the pricing catalog from a YAML definition. The
// file is the shop's rate card: processes, materials with their stock
// options, and surface treatments. Seeding is idempotent, every entry is an
// upsert.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fabworks/partquote/internal/core/domain"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Writer is the subset of the catalog repository the seeder needs.
type Writer interface {
	UpsertProcess(ctx context.Context, p domain.Process) error
	UpsertMaterial(ctx context.Context, m domain.Material) error
	UpsertSurfaceTreatment(ctx context.Context, t domain.SurfaceTreatment) error
}

type Catalog struct {
	Processes         []processEntry   `yaml:"processes"`
	Materials         []materialEntry  `yaml:"materials"`
	SurfaceTreatments []treatmentEntry `yaml:"surface_treatments"`
}

type processEntry struct {
	Name                string  `yaml:"name"`
	HourlyRate          float64 `yaml:"hourly_rate"`
	SetupCost           float64 `yaml:"setup_cost"`
	SetupTimeMultiplier float64 `yaml:"setup_time_multiplier"`
	FeedRateMmPerMin    float64 `yaml:"feed_rate_mm_per_min"`
	DepthOfCutMm        float64 `yaml:"depth_of_cut_mm"`
	ToolChangeMinutes   float64 `yaml:"tool_change_minutes"`
}

type materialEntry struct {
	Name                string         `yaml:"name"`
	PricingMethod       string         `yaml:"pricing_method"`
	CostPerCubicCm      float64        `yaml:"cost_per_cubic_cm"`
	MachinabilityRating float64        `yaml:"machinability_rating"`
	RemovalAdjustment   float64        `yaml:"removal_adjustment"`
	ToolWearFactor      float64        `yaml:"tool_wear_factor"`
	Sections            []sectionEntry `yaml:"sections"`
	Sheets              []sheetEntry   `yaml:"sheets"`
}

type sectionEntry struct {
	Shape       string  `yaml:"shape"`
	WidthIn     float64 `yaml:"width_in"`
	ThicknessIn float64 `yaml:"thickness_in"`
	DiameterIn  float64 `yaml:"diameter_in"`
	CostPerInch float64 `yaml:"cost_per_inch"`
}

type sheetEntry struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Thickness    float64 `yaml:"thickness"`
	CostPerSheet float64 `yaml:"cost_per_sheet"`
	Unit         string  `yaml:"unit"`
}

type treatmentEntry struct {
	Name       string  `yaml:"name"`
	CostPerCm2 float64 `yaml:"cost_per_cm2"`
}

// Load reads a catalog definition from path, or the embedded default when
// path is empty.
func Load(path string) (*Catalog, error) {
	raw := defaultCatalogYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		raw = data
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for _, p := range c.Processes {
		if p.Name == "" {
			return fmt.Errorf("catalog: process with empty name")
		}
		if p.HourlyRate <= 0 {
			return fmt.Errorf("catalog: process %s has no hourly rate", p.Name)
		}
	}
	for _, m := range c.Materials {
		if m.Name == "" {
			return fmt.Errorf("catalog: material with empty name")
		}
		switch domain.PricingMethod(m.PricingMethod) {
		case domain.PriceByWeight, domain.PriceByLinearInch, domain.PriceBySheet:
		default:
			return fmt.Errorf("catalog: material %s has unknown pricing method %q", m.Name, m.PricingMethod)
		}
		for _, s := range m.Sections {
			switch s.Shape {
			case "rectangular":
				if s.WidthIn <= 0 || s.ThicknessIn <= 0 {
					return fmt.Errorf("catalog: material %s rectangular section needs width_in and thickness_in", m.Name)
				}
			case "circular":
				if s.DiameterIn <= 0 {
					return fmt.Errorf("catalog: material %s circular section needs diameter_in", m.Name)
				}
			default:
				return fmt.Errorf("catalog: material %s has unknown section shape %q", m.Name, s.Shape)
			}
		}
	}
	return nil
}

// Apply upserts every catalog entry through the writer.
func (c *Catalog) Apply(ctx context.Context, store Writer) error {
	for _, entry := range c.Processes {
		process := domain.Process{
			Name:                entry.Name,
			HourlyRate:          entry.HourlyRate,
			SetupCost:           entry.SetupCost,
			SetupTimeMultiplier: entry.SetupTimeMultiplier,
			FeedRateMmPerMin:    entry.FeedRateMmPerMin,
			DepthOfCutMm:        entry.DepthOfCutMm,
			ToolChangeMinutes:   entry.ToolChangeMinutes,
			Active:              true,
		}
		if process.SetupTimeMultiplier <= 0 {
			process.SetupTimeMultiplier = 1.0
		}
		if err := store.UpsertProcess(ctx, process); err != nil {
			return fmt.Errorf("seed process %s: %w", entry.Name, err)
		}
	}

	for _, entry := range c.Materials {
		material := domain.Material{
			Name:                entry.Name,
			PricingMethod:       domain.PricingMethod(entry.PricingMethod),
			CostPerCubicCm:      entry.CostPerCubicCm,
			MachinabilityRating: entry.MachinabilityRating,
			RemovalAdjustment:   entry.RemovalAdjustment,
			ToolWearFactor:      entry.ToolWearFactor,
			Active:              true,
		}
		if material.MachinabilityRating <= 0 {
			material.MachinabilityRating = 1.0
		}
		if material.RemovalAdjustment <= 0 {
			material.RemovalAdjustment = 1.0
		}
		if material.ToolWearFactor <= 0 {
			material.ToolWearFactor = 1.0
		}
		for _, s := range entry.Sections {
			switch s.Shape {
			case "rectangular":
				material.Sections = append(material.Sections, domain.RectangularSection{
					WidthIn:      s.WidthIn,
					ThicknessIn:  s.ThicknessIn,
					PricePerInch: s.CostPerInch,
				})
			case "circular":
				material.Sections = append(material.Sections, domain.CircularSection{
					DiameterIn:   s.DiameterIn,
					PricePerInch: s.CostPerInch,
				})
			}
		}
		for _, s := range entry.Sheets {
			unit := domain.SheetUnit(s.Unit)
			if unit == "" {
				unit = domain.SheetUnitCm
			}
			material.Sheets = append(material.Sheets, domain.SheetConfiguration{
				Width:        s.Width,
				Height:       s.Height,
				Thickness:    s.Thickness,
				CostPerSheet: s.CostPerSheet,
				Unit:         unit,
			})
		}
		if err := store.UpsertMaterial(ctx, material); err != nil {
			return fmt.Errorf("seed material %s: %w", entry.Name, err)
		}
	}

	for _, entry := range c.SurfaceTreatments {
		treatment := domain.SurfaceTreatment{
			Name:       entry.Name,
			CostPerCm2: entry.CostPerCm2,
			Active:     true,
		}
		if err := store.UpsertSurfaceTreatment(ctx, treatment); err != nil {
			return fmt.Errorf("seed surface treatment %s: %w", entry.Name, err)
		}
	}
	return nil
}
