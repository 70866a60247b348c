package parquetio

import (
	"io"
	"math"
	"strings"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Columns follow the SSURGO tabular names so a snapshot exported straight
// from the source tables reads without renaming.

// HorizonSource reads chorizon snapshot rows. The snapshot must be sorted
// by (cokey, hzdept_r); use extsort first when it is not.
type HorizonSource struct {
	r *tableReader

	cokey, chkey           int
	master                 int
	top, bottom            int
	sand, silt, clay       int
	om, db, ec, ph, awc    int
}

// OpenHorizons opens a horizon snapshot from a parquet file on disk.
func OpenHorizons(path string) (*HorizonSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	return newHorizonSource(r)
}

// OpenHorizonsFromStream opens a horizon snapshot from a non-seekable
// stream, buffering it to a temp file.
func OpenHorizonsFromStream(rc io.ReadCloser) (*HorizonSource, error) {
	r, err := openTableFromStream(rc)
	if err != nil {
		return nil, err
	}
	return newHorizonSource(r)
}

func newHorizonSource(r *tableReader) (*HorizonSource, error) {
	req, err := r.require("cokey", "chkey", "hzdept_r", "hzdepb_r")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &HorizonSource{
		r:     r,
		cokey: req[0], chkey: req[1], top: req[2], bottom: req[3],
		master: r.col("desgnmaster"),
		sand:   r.col("sandtotal_r"),
		silt:   r.col("silttotal_r"),
		clay:   r.col("claytotal_r"),
		om:     r.col("om_r"),
		db:     r.col("dbthirdbar_r"),
		ec:     r.col("ec_r"),
		ph:     r.col("ph1to1h2o_r"),
		awc:    r.col("awc_r"),
	}, nil
}

// Read returns the next horizon row, io.EOF after the last.
func (s *HorizonSource) Read() (survey.Horizon, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.Horizon{}, err
	}

	h := survey.Horizon{
		Depth: survey.DepthInterval{Top: math.NaN(), Bottom: math.NaN()},
		Sand:  math.NaN(), Silt: math.NaN(), Clay: math.NaN(),
		OM: math.NaN(), Db: math.NaN(), EC: math.NaN(),
		PH: math.NaN(), AWC: math.NaN(),
	}
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.cokey:
			h.CoKey = v.String()
		case s.chkey:
			h.ChKey = v.String()
		case s.master:
			h.Master = v.String()
		case s.top:
			h.Depth.Top = v.Double()
		case s.bottom:
			h.Depth.Bottom = v.Double()
		case s.sand:
			h.Sand = v.Double()
		case s.silt:
			h.Silt = v.Double()
		case s.clay:
			h.Clay = v.Double()
		case s.om:
			h.OM = v.Double()
		case s.db:
			h.Db = v.Double()
		case s.ec:
			h.EC = v.Double()
		case s.ph:
			h.PH = v.Double()
		case s.awc:
			h.AWC = v.Double()
		}
	}
	return h, nil
}

// Close releases resources.
func (s *HorizonSource) Close() error { return s.r.Close() }

// ComponentSource reads component snapshot rows sorted by mukey.
type ComponentSource struct {
	r *tableReader

	mukey, cokey                   int
	pct, name, kind, major         int
	localPhase, otherPhase         int
	hydric, drainage               int
	taxOrder, taxSubgroup          int
}

// OpenComponents opens a component snapshot from a parquet file.
func OpenComponents(path string) (*ComponentSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	req, err := r.require("mukey", "cokey")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &ComponentSource{
		r:     r,
		mukey: req[0], cokey: req[1],
		pct:         r.col("comppct_r"),
		name:        r.col("compname"),
		kind:        r.col("compkind"),
		major:       r.col("majcompflag"),
		localPhase:  r.col("localphase"),
		otherPhase:  r.col("otherph"),
		hydric:      r.col("hydricrating"),
		drainage:    r.col("drainagecl"),
		taxOrder:    r.col("taxorder"),
		taxSubgroup: r.col("taxsubgrp"),
	}, nil
}

// Read returns the next component row, io.EOF after the last.
func (s *ComponentSource) Read() (survey.Component, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.Component{}, err
	}

	c := survey.Component{Pct: math.NaN()}
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.mukey:
			c.MuKey = v.String()
		case s.cokey:
			c.CoKey = v.String()
		case s.pct:
			c.Pct = v.Double()
		case s.name:
			c.Name = v.String()
		case s.kind:
			c.Kind = v.String()
		case s.major:
			c.MajorFlag = strings.EqualFold(v.String(), "Yes")
		case s.localPhase:
			c.LocalPhase = v.String()
		case s.otherPhase:
			c.OtherPhase = v.String()
		case s.hydric:
			c.HydricRating = v.String()
		case s.drainage:
			c.DrainageClass = v.String()
		case s.taxOrder:
			c.TaxOrder = v.String()
		case s.taxSubgroup:
			c.TaxSubgroup = v.String()
		}
	}
	return c, nil
}

// Close releases resources.
func (s *ComponentSource) Close() error { return s.r.Close() }

// RestrictionSource reads corestrictions snapshot rows.
type RestrictionSource struct {
	r                  *tableReader
	cokey, kind, depth int
}

// OpenRestrictions opens a restriction snapshot from a parquet file.
func OpenRestrictions(path string) (*RestrictionSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	req, err := r.require("cokey", "reskind")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &RestrictionSource{
		r:     r,
		cokey: req[0], kind: req[1],
		depth: r.col("resdept_r"),
	}, nil
}

// Read returns the next restriction row, io.EOF after the last.
func (s *RestrictionSource) Read() (survey.Restriction, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.Restriction{}, err
	}

	res := survey.Restriction{Depth: math.NaN()}
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.cokey:
			res.CoKey = v.String()
		case s.kind:
			res.Kind = v.String()
		case s.depth:
			res.Depth = v.Double()
		}
	}
	return res, nil
}

// Close releases resources.
func (s *RestrictionSource) Close() error { return s.r.Close() }

// InterpSource reads cointerp snapshot rows (commodity rules only, or the
// full table; non-commodity rules are skipped downstream).
type InterpSource struct {
	r                    *tableReader
	cokey, rule, rating  int
}

// OpenInterps opens an interpretation snapshot from a parquet file.
func OpenInterps(path string) (*InterpSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	req, err := r.require("cokey", "mrulekey")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &InterpSource{
		r:     r,
		cokey: req[0], rule: req[1],
		rating: r.col("interphr"),
	}, nil
}

// Read returns the next interpretation row, io.EOF after the last.
func (s *InterpSource) Read() (survey.CropInterp, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.CropInterp{}, err
	}

	ci := survey.CropInterp{Rating: math.NaN()}
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.cokey:
			ci.CoKey = v.String()
		case s.rule:
			ci.RuleKey = v.String()
		case s.rating:
			ci.Rating = v.Double()
		}
	}
	return ci, nil
}

// Close releases resources.
func (s *InterpSource) Close() error { return s.r.Close() }

// MapUnitSource reads mapunit snapshot rows.
type MapUnitSource struct {
	r           *tableReader
	mukey, name int
}

// OpenMapUnits opens a map unit snapshot from a parquet file.
func OpenMapUnits(path string) (*MapUnitSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	req, err := r.require("mukey")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &MapUnitSource{
		r:     r,
		mukey: req[0],
		name:  r.col("muname"),
	}, nil
}

// Read returns the next map unit row, io.EOF after the last.
func (s *MapUnitSource) Read() (survey.MapUnit, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.MapUnit{}, err
	}

	var mu survey.MapUnit
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.mukey:
			mu.MuKey = v.String()
		case s.name:
			mu.Name = v.String()
		}
	}
	return mu, nil
}

// Close releases resources.
func (s *MapUnitSource) Close() error { return s.r.Close() }

// TextureSource reads representative texture snapshot rows.
type TextureSource struct {
	r                   *tableReader
	chkey, code, inlieu int
}

// OpenTextures opens a texture snapshot from a parquet file.
func OpenTextures(path string) (*TextureSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	req, err := r.require("chkey")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &TextureSource{
		r:     r,
		chkey: req[0],
		code:  r.col("texture"),
		inlieu: r.col("lieutex"),
	}, nil
}

// Read returns the next texture row, io.EOF after the last.
func (s *TextureSource) Read() (survey.TextureRow, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.TextureRow{}, err
	}

	var tx survey.TextureRow
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.chkey:
			tx.ChKey = v.String()
		case s.code:
			tx.Code = v.String()
		case s.inlieu:
			tx.InLieu = v.String()
		}
	}
	return tx, nil
}

// Close releases resources.
func (s *TextureSource) Close() error { return s.r.Close() }

// FragmentSource reads rock fragment snapshot rows.
type FragmentSource struct {
	r                    *tableReader
	chkey, rv, low, high int
}

// OpenFragments opens a fragment snapshot from a parquet file.
func OpenFragments(path string) (*FragmentSource, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	req, err := r.require("chkey")
	if err != nil {
		r.Close()
		return nil, err
	}
	return &FragmentSource{
		r:     r,
		chkey: req[0],
		rv:    r.col("fragvol_r"),
		low:   r.col("fragvol_l"),
		high:  r.col("fragvol_h"),
	}, nil
}

// Read returns the next fragment row, io.EOF after the last.
func (s *FragmentSource) Read() (survey.FragmentRow, error) {
	row, err := s.r.next()
	if err != nil {
		return survey.FragmentRow{}, err
	}

	fr := survey.FragmentRow{RV: math.NaN(), Low: math.NaN(), High: math.NaN()}
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case s.chkey:
			fr.ChKey = v.String()
		case s.rv:
			fr.RV = v.Double()
		case s.low:
			fr.Low = v.Double()
		case s.high:
			fr.High = v.Double()
		}
	}
	return fr, nil
}

// Close releases resources.
func (s *FragmentSource) Close() error { return s.r.Close() }
