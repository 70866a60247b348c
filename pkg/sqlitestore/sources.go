package sqlitestore

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Snapshot table names follow the SSURGO tabular schema.

// HorizonRows streams chorizon rows in engine order.
type HorizonRows struct {
	rows *sql.Rows
}

// Horizons opens an ordered scan over the chorizon table.
func (s *Store) Horizons() (*HorizonRows, error) {
	rows, err := s.db.Query(`
		SELECT cokey, chkey, desgnmaster, hzdept_r, hzdepb_r,
		       sandtotal_r, silttotal_r, claytotal_r,
		       om_r, dbthirdbar_r, ec_r, ph1to1h2o_r, awc_r
		FROM chorizon
		ORDER BY cokey, hzdept_r`)
	if err != nil {
		return nil, fmt.Errorf("query chorizon: %w", err)
	}
	return &HorizonRows{rows: rows}, nil
}

// Read returns the next horizon row, io.EOF after the last.
func (r *HorizonRows) Read() (survey.Horizon, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.Horizon{}, fmt.Errorf("scan chorizon: %w", err)
		}
		return survey.Horizon{}, io.EOF
	}

	var (
		master                      sql.NullString
		top, bottom                 sql.NullFloat64
		sand, silt, clay            sql.NullFloat64
		om, db, ec, ph, awc         sql.NullFloat64
		h                           survey.Horizon
	)
	if err := r.rows.Scan(&h.CoKey, &h.ChKey, &master, &top, &bottom,
		&sand, &silt, &clay, &om, &db, &ec, &ph, &awc); err != nil {
		return survey.Horizon{}, fmt.Errorf("scan chorizon: %w", err)
	}

	h.Master = ns(master)
	h.Depth.Top = nf(top)
	h.Depth.Bottom = nf(bottom)
	h.Sand, h.Silt, h.Clay = nf(sand), nf(silt), nf(clay)
	h.OM, h.Db, h.EC, h.PH, h.AWC = nf(om), nf(db), nf(ec), nf(ph), nf(awc)
	return h, nil
}

// Close releases the scan.
func (r *HorizonRows) Close() error { return r.rows.Close() }

// ComponentRows streams component rows ordered by map unit key.
type ComponentRows struct {
	rows *sql.Rows
}

// Components opens an ordered scan over the component table.
func (s *Store) Components() (*ComponentRows, error) {
	rows, err := s.db.Query(`
		SELECT mukey, cokey, comppct_r, compname, compkind, majcompflag,
		       localphase, otherph, hydricrating, drainagecl,
		       taxorder, taxsubgrp
		FROM component
		ORDER BY mukey, cokey`)
	if err != nil {
		return nil, fmt.Errorf("query component: %w", err)
	}
	return &ComponentRows{rows: rows}, nil
}

// Read returns the next component row, io.EOF after the last.
func (r *ComponentRows) Read() (survey.Component, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.Component{}, fmt.Errorf("scan component: %w", err)
		}
		return survey.Component{}, io.EOF
	}

	var (
		pct                            sql.NullFloat64
		name, kind, major              sql.NullString
		localPhase, otherPhase         sql.NullString
		hydric, drainage, taxo, taxsub sql.NullString
		c                              survey.Component
	)
	if err := r.rows.Scan(&c.MuKey, &c.CoKey, &pct, &name, &kind, &major,
		&localPhase, &otherPhase, &hydric, &drainage, &taxo, &taxsub); err != nil {
		return survey.Component{}, fmt.Errorf("scan component: %w", err)
	}

	c.Pct = nf(pct)
	c.Name = ns(name)
	c.Kind = ns(kind)
	c.MajorFlag = strings.EqualFold(ns(major), "Yes")
	c.LocalPhase = ns(localPhase)
	c.OtherPhase = ns(otherPhase)
	c.HydricRating = ns(hydric)
	c.DrainageClass = ns(drainage)
	c.TaxOrder = ns(taxo)
	c.TaxSubgroup = ns(taxsub)
	return c, nil
}

// Close releases the scan.
func (r *ComponentRows) Close() error { return r.rows.Close() }

// RestrictionRows streams corestrictions rows.
type RestrictionRows struct {
	rows *sql.Rows
}

// Restrictions opens a scan over the corestrictions table.
func (s *Store) Restrictions() (*RestrictionRows, error) {
	rows, err := s.db.Query(`
		SELECT cokey, reskind, resdept_r FROM corestrictions`)
	if err != nil {
		return nil, fmt.Errorf("query corestrictions: %w", err)
	}
	return &RestrictionRows{rows: rows}, nil
}

// Read returns the next restriction row, io.EOF after the last.
func (r *RestrictionRows) Read() (survey.Restriction, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.Restriction{}, fmt.Errorf("scan corestrictions: %w", err)
		}
		return survey.Restriction{}, io.EOF
	}

	var (
		kind  sql.NullString
		depth sql.NullFloat64
		res   survey.Restriction
	)
	if err := r.rows.Scan(&res.CoKey, &kind, &depth); err != nil {
		return survey.Restriction{}, fmt.Errorf("scan corestrictions: %w", err)
	}
	res.Kind = ns(kind)
	res.Depth = nf(depth)
	return res, nil
}

// Close releases the scan.
func (r *RestrictionRows) Close() error { return r.rows.Close() }

// InterpRows streams commodity interpretation rows. The WHERE clause keeps
// the scan to the five commodity rules; the full cointerp table is large.
type InterpRows struct {
	rows *sql.Rows
}

// Interps opens a scan over the commodity rows of the cointerp table.
func (s *Store) Interps() (*InterpRows, error) {
	rows, err := s.db.Query(`
		SELECT cokey, mrulekey, interphr
		FROM cointerp
		WHERE mrulekey IN (?, ?, ?, ?, ?)`,
		survey.RuleKeyCorn, survey.RuleKeySoybeans, survey.RuleKeyCotton,
		survey.RuleKeySmallGrains, survey.RuleKeyOverall)
	if err != nil {
		return nil, fmt.Errorf("query cointerp: %w", err)
	}
	return &InterpRows{rows: rows}, nil
}

// Read returns the next interpretation row, io.EOF after the last.
func (r *InterpRows) Read() (survey.CropInterp, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.CropInterp{}, fmt.Errorf("scan cointerp: %w", err)
		}
		return survey.CropInterp{}, io.EOF
	}

	var (
		rating sql.NullFloat64
		ci     survey.CropInterp
	)
	if err := r.rows.Scan(&ci.CoKey, &ci.RuleKey, &rating); err != nil {
		return survey.CropInterp{}, fmt.Errorf("scan cointerp: %w", err)
	}
	ci.Rating = nf(rating)
	return ci, nil
}

// Close releases the scan.
func (r *InterpRows) Close() error { return r.rows.Close() }

// MapUnitRows streams mapunit rows.
type MapUnitRows struct {
	rows *sql.Rows
}

// MapUnits opens a scan over the mapunit table, ordered by key so the
// artifact row order is deterministic.
func (s *Store) MapUnits() (*MapUnitRows, error) {
	rows, err := s.db.Query(`SELECT mukey, muname FROM mapunit ORDER BY mukey`)
	if err != nil {
		return nil, fmt.Errorf("query mapunit: %w", err)
	}
	return &MapUnitRows{rows: rows}, nil
}

// Read returns the next map unit row, io.EOF after the last.
func (r *MapUnitRows) Read() (survey.MapUnit, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.MapUnit{}, fmt.Errorf("scan mapunit: %w", err)
		}
		return survey.MapUnit{}, io.EOF
	}

	var (
		name sql.NullString
		mu   survey.MapUnit
	)
	if err := r.rows.Scan(&mu.MuKey, &name); err != nil {
		return survey.MapUnit{}, fmt.Errorf("scan mapunit: %w", err)
	}
	mu.Name = ns(name)
	return mu, nil
}

// Close releases the scan.
func (r *MapUnitRows) Close() error { return r.rows.Close() }

// TextureRows streams representative texture rows.
type TextureRows struct {
	rows *sql.Rows
}

// Textures opens a scan over the RV texture entries.
func (s *Store) Textures() (*TextureRows, error) {
	rows, err := s.db.Query(`
		SELECT chkey, texture, lieutex
		FROM chtexturegrp
		WHERE rvindicator = 'Yes'`)
	if err != nil {
		return nil, fmt.Errorf("query chtexturegrp: %w", err)
	}
	return &TextureRows{rows: rows}, nil
}

// Read returns the next texture row, io.EOF after the last.
func (r *TextureRows) Read() (survey.TextureRow, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.TextureRow{}, fmt.Errorf("scan chtexturegrp: %w", err)
		}
		return survey.TextureRow{}, io.EOF
	}

	var (
		code, inlieu sql.NullString
		tx           survey.TextureRow
	)
	if err := r.rows.Scan(&tx.ChKey, &code, &inlieu); err != nil {
		return survey.TextureRow{}, fmt.Errorf("scan chtexturegrp: %w", err)
	}
	tx.Code = ns(code)
	tx.InLieu = ns(inlieu)
	return tx, nil
}

// Close releases the scan.
func (r *TextureRows) Close() error { return r.rows.Close() }

// FragmentRows streams rock fragment rows.
type FragmentRows struct {
	rows *sql.Rows
}

// Fragments opens a scan over the chfrags table.
func (s *Store) Fragments() (*FragmentRows, error) {
	rows, err := s.db.Query(`
		SELECT chkey, fragvol_r, fragvol_l, fragvol_h FROM chfrags`)
	if err != nil {
		return nil, fmt.Errorf("query chfrags: %w", err)
	}
	return &FragmentRows{rows: rows}, nil
}

// Read returns the next fragment row, io.EOF after the last.
func (r *FragmentRows) Read() (survey.FragmentRow, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return survey.FragmentRow{}, fmt.Errorf("scan chfrags: %w", err)
		}
		return survey.FragmentRow{}, io.EOF
	}

	var (
		rv, low, high sql.NullFloat64
		fr            survey.FragmentRow
	)
	if err := r.rows.Scan(&fr.ChKey, &rv, &low, &high); err != nil {
		return survey.FragmentRow{}, fmt.Errorf("scan chfrags: %w", err)
	}
	fr.RV = nf(rv)
	fr.Low = nf(low)
	fr.High = nf(high)
	return fr, nil
}

// Close releases the scan.
func (r *FragmentRows) Close() error { return r.rows.Close() }
