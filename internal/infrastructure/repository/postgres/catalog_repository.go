package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fabworks/partquote/internal/core/domain"
)

// CatalogRepository reads and seeds the pricing catalog. Lookups only return
// active entries; a deactivated rate card disappears from quoting without
// losing its history.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Section shape discriminators as stored in material_sections.
const (
	sectionShapeRectangular = "rectangular"
	sectionShapeCircular    = "circular"
)

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082303)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS processes (
	name TEXT PRIMARY KEY,
	hourly_rate DOUBLE PRECISION NOT NULL,
	setup_cost DOUBLE PRECISION NOT NULL,
	setup_time_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
	feed_rate_mm_per_min DOUBLE PRECISION NOT NULL,
	depth_of_cut_mm DOUBLE PRECISION NOT NULL,
	tool_change_minutes DOUBLE PRECISION NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS materials (
	name TEXT PRIMARY KEY,
	pricing_method TEXT NOT NULL,
	cost_per_cubic_cm DOUBLE PRECISION NOT NULL,
	machinability_rating DOUBLE PRECISION NOT NULL,
	removal_adjustment DOUBLE PRECISION NOT NULL DEFAULT 1,
	tool_wear_factor DOUBLE PRECISION NOT NULL DEFAULT 1,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS material_sections (
	id SERIAL PRIMARY KEY,
	material TEXT NOT NULL REFERENCES materials(name) ON DELETE CASCADE,
	shape TEXT NOT NULL,
	width_in DOUBLE PRECISION,
	thickness_in DOUBLE PRECISION,
	diameter_in DOUBLE PRECISION,
	cost_per_inch DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_material_sections_material ON material_sections(material);

CREATE TABLE IF NOT EXISTS material_sheets (
	id SERIAL PRIMARY KEY,
	material TEXT NOT NULL REFERENCES materials(name) ON DELETE CASCADE,
	width DOUBLE PRECISION NOT NULL,
	height DOUBLE PRECISION NOT NULL,
	thickness DOUBLE PRECISION NOT NULL,
	cost_per_sheet DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL DEFAULT 'cm'
);

CREATE INDEX IF NOT EXISTS idx_material_sheets_material ON material_sheets(material);

CREATE TABLE IF NOT EXISTS surface_treatments (
	name TEXT PRIMARY KEY,
	cost_per_cm2 DOUBLE PRECISION NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetProcess(ctx context.Context, name string) (*domain.Process, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, hourly_rate, setup_cost, setup_time_multiplier, feed_rate_mm_per_min, depth_of_cut_mm, tool_change_minutes, active
FROM processes
WHERE name = $1 AND active
`, name)

	var p domain.Process
	err := row.Scan(&p.Name, &p.HourlyRate, &p.SetupCost, &p.SetupTimeMultiplier,
		&p.FeedRateMmPerMin, &p.DepthOfCutMm, &p.ToolChangeMinutes, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCatalogNotFound, "get process", fmt.Errorf("name %s", name))
		}
		return nil, fmt.Errorf("scan process: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepository) GetMaterial(ctx context.Context, name string) (*domain.Material, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, pricing_method, cost_per_cubic_cm, machinability_rating, removal_adjustment, tool_wear_factor, active
FROM materials
WHERE name = $1 AND active
`, name)

	var m domain.Material
	var method string
	err := row.Scan(&m.Name, &method, &m.CostPerCubicCm, &m.MachinabilityRating,
		&m.RemovalAdjustment, &m.ToolWearFactor, &m.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCatalogNotFound, "get material", fmt.Errorf("name %s", name))
		}
		return nil, fmt.Errorf("scan material: %w", err)
	}
	m.PricingMethod = domain.PricingMethod(method)

	if m.Sections, err = r.loadSections(ctx, name); err != nil {
		return nil, err
	}
	if m.Sheets, err = r.loadSheets(ctx, name); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *CatalogRepository) loadSections(ctx context.Context, material string) ([]domain.StockSection, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT shape, width_in, thickness_in, diameter_in, cost_per_inch
FROM material_sections
WHERE material = $1
ORDER BY id
`, material)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	var sections []domain.StockSection
	for rows.Next() {
		var shape string
		var width, thickness, diameter sql.NullFloat64
		var costPerInch float64
		if err := rows.Scan(&shape, &width, &thickness, &diameter, &costPerInch); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		switch shape {
		case sectionShapeRectangular:
			sections = append(sections, domain.RectangularSection{
				WidthIn:      width.Float64,
				ThicknessIn:  thickness.Float64,
				PricePerInch: costPerInch,
			})
		case sectionShapeCircular:
			sections = append(sections, domain.CircularSection{
				DiameterIn:   diameter.Float64,
				PricePerInch: costPerInch,
			})
		default:
			return nil, fmt.Errorf("unknown section shape %q for material %s", shape, material)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return sections, nil
}

func (r *CatalogRepository) loadSheets(ctx context.Context, material string) ([]domain.SheetConfiguration, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT width, height, thickness, cost_per_sheet, unit
FROM material_sheets
WHERE material = $1
ORDER BY id
`, material)
	if err != nil {
		return nil, fmt.Errorf("query sheets: %w", err)
	}
	defer rows.Close()

	var sheets []domain.SheetConfiguration
	for rows.Next() {
		var s domain.SheetConfiguration
		var unit string
		if err := rows.Scan(&s.Width, &s.Height, &s.Thickness, &s.CostPerSheet, &unit); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		s.Unit = domain.SheetUnit(unit)
		sheets = append(sheets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sheets: %w", err)
	}
	return sheets, nil
}

func (r *CatalogRepository) GetSurfaceTreatment(ctx context.Context, name string) (*domain.SurfaceTreatment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, cost_per_cm2, active
FROM surface_treatments
WHERE name = $1 AND active
`, name)

	var t domain.SurfaceTreatment
	err := row.Scan(&t.Name, &t.CostPerCm2, &t.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCatalogNotFound, "get surface treatment", fmt.Errorf("name %s", name))
		}
		return nil, fmt.Errorf("scan surface treatment: %w", err)
	}
	return &t, nil
}

// UpsertProcess writes one rate card, used by the YAML catalog seeder.
func (r *CatalogRepository) UpsertProcess(ctx context.Context, p domain.Process) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processes (name, hourly_rate, setup_cost, setup_time_multiplier, feed_rate_mm_per_min, depth_of_cut_mm, tool_change_minutes, active, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (name) DO UPDATE
SET hourly_rate = EXCLUDED.hourly_rate,
    setup_cost = EXCLUDED.setup_cost,
    setup_time_multiplier = EXCLUDED.setup_time_multiplier,
    feed_rate_mm_per_min = EXCLUDED.feed_rate_mm_per_min,
    depth_of_cut_mm = EXCLUDED.depth_of_cut_mm,
    tool_change_minutes = EXCLUDED.tool_change_minutes,
    active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at
`, p.Name, p.HourlyRate, p.SetupCost, p.SetupTimeMultiplier, p.FeedRateMmPerMin,
		p.DepthOfCutMm, p.ToolChangeMinutes, p.Active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert process: %w", err)
	}
	return nil
}

// UpsertMaterial replaces the material row and its stock options in one
// transaction, so a partially applied seed never leaves a material with a
// stale section list.
func (r *CatalogRepository) UpsertMaterial(ctx context.Context, m domain.Material) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin material tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO materials (name, pricing_method, cost_per_cubic_cm, machinability_rating, removal_adjustment, tool_wear_factor, active, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (name) DO UPDATE
SET pricing_method = EXCLUDED.pricing_method,
    cost_per_cubic_cm = EXCLUDED.cost_per_cubic_cm,
    machinability_rating = EXCLUDED.machinability_rating,
    removal_adjustment = EXCLUDED.removal_adjustment,
    tool_wear_factor = EXCLUDED.tool_wear_factor,
    active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at
`, m.Name, string(m.PricingMethod), m.CostPerCubicCm, m.MachinabilityRating,
		m.RemovalAdjustment, m.ToolWearFactor, m.Active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert material: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM material_sections WHERE material = $1`, m.Name); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}
	for _, section := range m.Sections {
		switch s := section.(type) {
		case domain.RectangularSection:
			_, err = tx.ExecContext(ctx, `
INSERT INTO material_sections (material, shape, width_in, thickness_in, cost_per_inch)
VALUES ($1,$2,$3,$4,$5)
`, m.Name, sectionShapeRectangular, s.WidthIn, s.ThicknessIn, s.PricePerInch)
		case domain.CircularSection:
			_, err = tx.ExecContext(ctx, `
INSERT INTO material_sections (material, shape, diameter_in, cost_per_inch)
VALUES ($1,$2,$3,$4)
`, m.Name, sectionShapeCircular, s.DiameterIn, s.PricePerInch)
		default:
			err = fmt.Errorf("unknown section type %T", section)
		}
		if err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM material_sheets WHERE material = $1`, m.Name); err != nil {
		return fmt.Errorf("clear sheets: %w", err)
	}
	for _, sheet := range m.Sheets {
		unit := sheet.Unit
		if unit == "" {
			unit = domain.SheetUnitCm
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO material_sheets (material, width, height, thickness, cost_per_sheet, unit)
VALUES ($1,$2,$3,$4,$5,$6)
`, m.Name, sheet.Width, sheet.Height, sheet.Thickness, sheet.CostPerSheet, string(unit))
		if err != nil {
			return fmt.Errorf("insert sheet: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit material tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpsertSurfaceTreatment(ctx context.Context, t domain.SurfaceTreatment) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO surface_treatments (name, cost_per_cm2, active, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (name) DO UPDATE
SET cost_per_cm2 = EXCLUDED.cost_per_cm2,
    active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at
`, t.Name, t.CostPerCm2, t.Active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert surface treatment: %w", err)
	}
	return nil
}
