package sqlitestore

import (
	"database/sql"
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "survey.db")))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func execAll(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig("x.db"), false},
		{"empty path", Config{}, true},
		{"bad synchronous", Config{DBPath: "x.db", Synchronous: "MAYBE"}, true},
		{"negative mmap", Config{DBPath: "x.db", MmapSize: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHorizonRowsOrderedNullToNaN(t *testing.T) {
	s := openTestStore(t)

	execAll(t, s.DB(),
		`CREATE TABLE chorizon (
			cokey TEXT, chkey TEXT, desgnmaster TEXT,
			hzdept_r REAL, hzdepb_r REAL,
			sandtotal_r REAL, silttotal_r REAL, claytotal_r REAL,
			om_r REAL, dbthirdbar_r REAL, ec_r REAL, ph1to1h2o_r REAL,
			awc_r REAL)`,
		// Inserted out of order on purpose; the scan must come back sorted.
		`INSERT INTO chorizon VALUES
			('co2', 'h3', NULL, 0, 150, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL),
			('co1', 'h2', 'B', 20, 50, 30, 40, 30, 1.0, 1.4, 0.2, 6.8, 0.15),
			('co1', 'h1', 'A', 0, 20, 25, 45, 30, 2.5, 1.3, 0.1, 6.5, 0.18)`,
	)

	src, err := s.Horizons()
	if err != nil {
		t.Fatalf("Horizons: %v", err)
	}
	defer src.Close()

	h1, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h1.CoKey != "co1" || h1.ChKey != "h1" || h1.Master != "A" {
		t.Errorf("row 1 = %+v", h1)
	}
	if h1.AWC != 0.18 {
		t.Errorf("row 1 AWC = %v", h1.AWC)
	}

	h2, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h2.ChKey != "h2" || h2.Depth.Top != 20 {
		t.Errorf("row 2 = %+v", h2)
	}

	h3, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h3.CoKey != "co2" || h3.Master != "" {
		t.Errorf("row 3 = %+v", h3)
	}
	if !math.IsNaN(h3.AWC) || !math.IsNaN(h3.Sand) || !math.IsNaN(h3.OM) {
		t.Errorf("NULLs should scan to NaN: %+v", h3)
	}

	if _, err := src.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Read past end = %v, want io.EOF", err)
	}
}

func TestComponentRows(t *testing.T) {
	s := openTestStore(t)

	execAll(t, s.DB(),
		`CREATE TABLE component (
			mukey TEXT, cokey TEXT, comppct_r REAL, compname TEXT,
			compkind TEXT, majcompflag TEXT, localphase TEXT, otherph TEXT,
			hydricrating TEXT, drainagecl TEXT, taxorder TEXT, taxsubgrp TEXT)`,
		`INSERT INTO component VALUES
			('mu1', 'co1', 85, 'Tama', 'Series', 'Yes', NULL, NULL,
			 'No', 'Well drained', 'Mollisols', 'Typic Argiudolls'),
			('mu1', 'co2', NULL, 'Water', 'Miscellaneous area', 'No', NULL,
			 NULL, NULL, NULL, NULL, NULL)`,
	)

	src, err := s.Components()
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	defer src.Close()

	c1, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !c1.MajorFlag || c1.Pct != 85 || c1.DrainageClass != "Well drained" {
		t.Errorf("row 1 = %+v", c1)
	}

	c2, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !math.IsNaN(c2.Pct) || !c2.Miscellaneous() {
		t.Errorf("row 2 = %+v", c2)
	}
}

func TestLookupSources(t *testing.T) {
	s := openTestStore(t)

	execAll(t, s.DB(),
		`CREATE TABLE corestrictions (cokey TEXT, reskind TEXT, resdept_r REAL)`,
		`INSERT INTO corestrictions VALUES ('co1', 'Lithic bedrock', 55)`,
		`CREATE TABLE cointerp (cokey TEXT, mrulekey TEXT, interphr REAL)`,
		`INSERT INTO cointerp VALUES
			('co1', '57994', 0.82),
			('co1', '99999', 0.5)`,
		`CREATE TABLE mapunit (mukey TEXT, muname TEXT)`,
		`INSERT INTO mapunit VALUES ('mu1', 'Houghton muck, drained')`,
		`CREATE TABLE chtexturegrp (chkey TEXT, texture TEXT, lieutex TEXT, rvindicator TEXT)`,
		`INSERT INTO chtexturegrp VALUES
			('h1', 'MUCK', NULL, 'Yes'),
			('h2', 'SIL', NULL, 'Yes'),
			('h3', 'MUCK', NULL, 'No')`,
		`CREATE TABLE chfrags (chkey TEXT, fragvol_r REAL, fragvol_l REAL, fragvol_h REAL)`,
		`INSERT INTO chfrags VALUES ('h1', 10, NULL, NULL), ('h1', NULL, 2, 6)`,
	)

	rs, err := s.Restrictions()
	if err != nil {
		t.Fatalf("Restrictions: %v", err)
	}
	r1, err := rs.Read()
	rs.Close()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r1.Kind != "Lithic bedrock" || r1.Depth != 55 {
		t.Errorf("restriction = %+v", r1)
	}

	// Interps scans only commodity rules.
	is, err := s.Interps()
	if err != nil {
		t.Fatalf("Interps: %v", err)
	}
	var interps []survey.CropInterp
	for {
		ci, err := is.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		interps = append(interps, ci)
	}
	is.Close()
	if len(interps) != 1 || interps[0].RuleKey != survey.RuleKeyCorn {
		t.Errorf("interps = %+v", interps)
	}

	mus, err := s.MapUnits()
	if err != nil {
		t.Fatalf("MapUnits: %v", err)
	}
	mu, err := mus.Read()
	mus.Close()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if mu.MuKey != "mu1" || mu.Name != "Houghton muck, drained" {
		t.Errorf("mapunit = %+v", mu)
	}

	// Textures scans RV entries only.
	ts, err := s.Textures()
	if err != nil {
		t.Fatalf("Textures: %v", err)
	}
	var textures []survey.TextureRow
	for {
		tx, err := ts.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		textures = append(textures, tx)
	}
	ts.Close()
	if len(textures) != 2 {
		t.Fatalf("textures = %+v", textures)
	}

	fs, err := s.Fragments()
	if err != nil {
		t.Fatalf("Fragments: %v", err)
	}
	fr1, err := fs.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if fr1.RV != 10 || !math.IsNaN(fr1.Low) {
		t.Errorf("fragment 1 = %+v", fr1)
	}
	fr2, err := fs.Read()
	fs.Close()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !math.IsNaN(fr2.RV) || fr2.Low != 2 || fr2.High != 6 {
		t.Errorf("fragment 2 = %+v", fr2)
	}
}

func TestSummaryWriterBatchesAndRounds(t *testing.T) {
	s := openTestStore(t)

	w, err := s.NewSummaryWriter()
	if err != nil {
		t.Fatalf("NewSummaryWriter: %v", err)
	}

	// Enough rows to cross a multi-row batch boundary.
	const n = 40
	for i := 0; i < n; i++ {
		var sum survey.MapUnitSummary
		sum.MuKey = "mu" + string(rune('A'+i%26)) + string(rune('0'+i/26))
		for j := range sum.AWS {
			sum.AWS[j] = math.NaN()
			sum.AWSThick[j] = math.NaN()
			sum.SOC[j] = math.NaN()
			sum.SOCThick[j] = math.NaN()
		}
		sum.AWS[0] = 12.3456
		sum.NCCPI = survey.NaNNCCPI()
		sum.RootZoneDepth = math.NaN()
		sum.RootZoneAWS = math.NaN()
		sum.Droughty = math.NaN()
		sum.PWSL = 14.6
		sum.CompPctSum = 100
		sum.EarthyMajorPct = math.NaN()
		sum.DominantPct = math.NaN()
		if err := w.Write(sum); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.Count() != n {
		t.Errorf("Count = %d, want %d", w.Count(), n)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + SummaryTable).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != n {
		t.Errorf("table rows = %d, want %d", count, n)
	}

	var aws, pwsl sql.NullFloat64
	var soc sql.NullFloat64
	err = s.DB().QueryRow(
		"SELECT aws0_5, pwsl1pomu, soc0_5 FROM " + SummaryTable + " LIMIT 1").
		Scan(&aws, &pwsl, &soc)
	if err != nil {
		t.Fatalf("row query: %v", err)
	}
	if !aws.Valid || aws.Float64 != 12.35 {
		t.Errorf("aws0_5 = %+v, want 12.35 (rounded at sink)", aws)
	}
	if !pwsl.Valid || pwsl.Float64 != 15 {
		t.Errorf("pwsl1pomu = %+v, want 15", pwsl)
	}
	if soc.Valid {
		t.Errorf("soc0_5 = %v, want NULL", soc.Float64)
	}
}

func TestResultWriter(t *testing.T) {
	s := openTestStore(t)

	w, err := s.NewResultWriter("wtd_avg")
	if err != nil {
		t.Fatalf("NewResultWriter: %v", err)
	}

	rows := []survey.AggResult{
		{MuKey: "mu1", Pct: 85, Value: 6.5, Label: "", Seq: math.NaN()},
		{MuKey: "mu2", Pct: 100, Value: math.NaN(), Label: "Hydric", Seq: 2},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var method string
	var value sql.NullFloat64
	err = s.DB().QueryRow(
		"SELECT method, value FROM "+AggTable+" WHERE mukey = ?", "mu2").
		Scan(&method, &value)
	if err != nil {
		t.Fatalf("row query: %v", err)
	}
	if method != "wtd_avg" {
		t.Errorf("method = %q", method)
	}
	if value.Valid {
		t.Errorf("value = %v, want NULL", value.Float64)
	}
}

func TestResultWriterAbort(t *testing.T) {
	s := openTestStore(t)

	w, err := s.NewResultWriter("min")
	if err != nil {
		t.Fatalf("NewResultWriter: %v", err)
	}
	if err := w.Write(survey.AggResult{MuKey: "mu1", Pct: 100, Value: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Abort()

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + AggTable).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after abort = %d, want 0", count)
	}
}
