package pgstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// HorizonRows streams chorizon rows in engine order.
type HorizonRows struct {
	rows pgx.Rows
}

// Horizons opens an ordered scan over the chorizon table.
func (s *Store) Horizons(ctx context.Context) (*HorizonRows, error) {
	rows, err := s.pool.Query(ctx, `
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
		master                          *string
		top, bottom, sand, silt, clay   *float64
		om, db, ec, ph, awc             *float64
		h                               survey.Horizon
	)
	if err := r.rows.Scan(&h.CoKey, &h.ChKey, &master, &top, &bottom,
		&sand, &silt, &clay, &om, &db, &ec, &ph, &awc); err != nil {
		return survey.Horizon{}, fmt.Errorf("scan chorizon: %w", err)
	}

	h.Master = emptyIfNil(master)
	h.Depth.Top = nilToNaN(top)
	h.Depth.Bottom = nilToNaN(bottom)
	h.Sand, h.Silt, h.Clay = nilToNaN(sand), nilToNaN(silt), nilToNaN(clay)
	h.OM, h.Db = nilToNaN(om), nilToNaN(db)
	h.EC, h.PH, h.AWC = nilToNaN(ec), nilToNaN(ph), nilToNaN(awc)
	return h, nil
}

// Close releases the scan.
func (r *HorizonRows) Close() error {
	r.rows.Close()
	return nil
}

// ComponentRows streams component rows ordered by map unit key.
type ComponentRows struct {
	rows pgx.Rows
}

// Components opens an ordered scan over the component table.
func (s *Store) Components(ctx context.Context) (*ComponentRows, error) {
	rows, err := s.pool.Query(ctx, `
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
		pct                            *float64
		name, kind, major              *string
		localPhase, otherPhase         *string
		hydric, drainage, taxo, taxsub *string
		c                              survey.Component
	)
	if err := r.rows.Scan(&c.MuKey, &c.CoKey, &pct, &name, &kind, &major,
		&localPhase, &otherPhase, &hydric, &drainage, &taxo, &taxsub); err != nil {
		return survey.Component{}, fmt.Errorf("scan component: %w", err)
	}

	c.Pct = nilToNaN(pct)
	c.Name = emptyIfNil(name)
	c.Kind = emptyIfNil(kind)
	c.MajorFlag = strings.EqualFold(emptyIfNil(major), "Yes")
	c.LocalPhase = emptyIfNil(localPhase)
	c.OtherPhase = emptyIfNil(otherPhase)
	c.HydricRating = emptyIfNil(hydric)
	c.DrainageClass = emptyIfNil(drainage)
	c.TaxOrder = emptyIfNil(taxo)
	c.TaxSubgroup = emptyIfNil(taxsub)
	return c, nil
}

// Close releases the scan.
func (r *ComponentRows) Close() error {
	r.rows.Close()
	return nil
}

// RestrictionRows streams corestrictions rows.
type RestrictionRows struct {
	rows pgx.Rows
}

// Restrictions opens a scan over the corestrictions table.
func (s *Store) Restrictions(ctx context.Context) (*RestrictionRows, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cokey, reskind, resdept_r FROM corestrictions`)
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
		kind  *string
		depth *float64
		res   survey.Restriction
	)
	if err := r.rows.Scan(&res.CoKey, &kind, &depth); err != nil {
		return survey.Restriction{}, fmt.Errorf("scan corestrictions: %w", err)
	}
	res.Kind = emptyIfNil(kind)
	res.Depth = nilToNaN(depth)
	return res, nil
}

// Close releases the scan.
func (r *RestrictionRows) Close() error {
	r.rows.Close()
	return nil
}

// InterpRows streams commodity interpretation rows.
type InterpRows struct {
	rows pgx.Rows
}

// Interps opens a scan over the commodity rows of the cointerp table.
func (s *Store) Interps(ctx context.Context) (*InterpRows, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cokey, mrulekey, interphr
		FROM cointerp
		WHERE mrulekey = ANY($1)`,
		[]string{survey.RuleKeyCorn, survey.RuleKeySoybeans,
			survey.RuleKeyCotton, survey.RuleKeySmallGrains,
			survey.RuleKeyOverall})
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
		rating *float64
		ci     survey.CropInterp
	)
	if err := r.rows.Scan(&ci.CoKey, &ci.RuleKey, &rating); err != nil {
		return survey.CropInterp{}, fmt.Errorf("scan cointerp: %w", err)
	}
	ci.Rating = nilToNaN(rating)
	return ci, nil
}

// Close releases the scan.
func (r *InterpRows) Close() error {
	r.rows.Close()
	return nil
}

// MapUnitRows streams mapunit rows.
type MapUnitRows struct {
	rows pgx.Rows
}

// MapUnits opens a keyed scan over the mapunit table.
func (s *Store) MapUnits(ctx context.Context) (*MapUnitRows, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT mukey, muname FROM mapunit ORDER BY mukey`)
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
		name *string
		mu   survey.MapUnit
	)
	if err := r.rows.Scan(&mu.MuKey, &name); err != nil {
		return survey.MapUnit{}, fmt.Errorf("scan mapunit: %w", err)
	}
	mu.Name = emptyIfNil(name)
	return mu, nil
}

// Close releases the scan.
func (r *MapUnitRows) Close() error {
	r.rows.Close()
	return nil
}

// TextureRows streams representative texture rows.
type TextureRows struct {
	rows pgx.Rows
}

// Textures opens a scan over the RV texture entries.
func (s *Store) Textures(ctx context.Context) (*TextureRows, error) {
	rows, err := s.pool.Query(ctx, `
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
		code, inlieu *string
		tx           survey.TextureRow
	)
	if err := r.rows.Scan(&tx.ChKey, &code, &inlieu); err != nil {
		return survey.TextureRow{}, fmt.Errorf("scan chtexturegrp: %w", err)
	}
	tx.Code = emptyIfNil(code)
	tx.InLieu = emptyIfNil(inlieu)
	return tx, nil
}

// Close releases the scan.
func (r *TextureRows) Close() error {
	r.rows.Close()
	return nil
}

// FragmentRows streams rock fragment rows.
type FragmentRows struct {
	rows pgx.Rows
}

// Fragments opens a scan over the chfrags table.
func (s *Store) Fragments(ctx context.Context) (*FragmentRows, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chkey, fragvol_r, fragvol_l, fragvol_h FROM chfrags`)
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
		rv, low, high *float64
		fr            survey.FragmentRow
	)
	if err := r.rows.Scan(&fr.ChKey, &rv, &low, &high); err != nil {
		return survey.FragmentRow{}, fmt.Errorf("scan chfrags: %w", err)
	}
	fr.RV = nilToNaN(rv)
	fr.Low = nilToNaN(low)
	fr.High = nilToNaN(high)
	return fr, nil
}

// Close releases the scan.
func (r *FragmentRows) Close() error {
	r.rows.Close()
	return nil
}
