package pgstore

import (
	"math"
	"strings"
	"testing"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig("postgres://localhost/ssurgo"), false},
		{"empty DSN", Config{PoolMin: 1, PoolMax: 4}, true},
		{"zero max", Config{DSN: "postgres://x", PoolMin: 0, PoolMax: 0}, true},
		{"min above max", Config{DSN: "postgres://x", PoolMin: 8, PoolMax: 4}, true},
		{"negative min", Config{DSN: "postgres://x", PoolMin: -1, PoolMax: 4}, true},
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

func TestInsertSQLPlaceholders(t *testing.T) {
	sql := insertSQL("t", []string{"a", "b", "c"})
	want := "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"
	if sql != want {
		t.Errorf("insertSQL = %q, want %q", sql, want)
	}
}

func TestSummaryColumnsMatchArgs(t *testing.T) {
	cols := summaryColumns()
	args := summaryArgs(nil, survey.MapUnitSummary{MuKey: "m1"})
	if len(cols) != len(args) {
		t.Fatalf("len(cols) = %d, len(args) = %d", len(cols), len(args))
	}
	if cols[0] != "mukey" || cols[len(cols)-1] != "domcomppct" {
		t.Errorf("column order wrong: first %q, last %q", cols[0], cols[len(cols)-1])
	}
	ddl := summaryColumnDDL()
	if !strings.Contains(ddl, "mukey TEXT PRIMARY KEY") ||
		!strings.Contains(ddl, "aws0_5 DOUBLE PRECISION") {
		t.Errorf("DDL missing expected columns:\n%s", ddl)
	}
}

func TestSummaryArgsRoundsAndNulls(t *testing.T) {
	s := survey.MapUnitSummary{MuKey: "m1"}
	for i := range s.AWS {
		s.AWS[i] = math.NaN()
		s.AWSThick[i] = math.NaN()
		s.SOC[i] = math.NaN()
		s.SOCThick[i] = math.NaN()
	}
	s.AWS[0] = 12.3456
	s.NCCPI = survey.NaNNCCPI()
	s.NCCPI[survey.CropCorn] = 0.82345
	s.PWSL = 14.6
	s.AWSCompPct = math.NaN()
	s.SOCCompPct = math.NaN()
	s.EarthyMajorPct = math.NaN()
	s.RootZoneDepth = math.NaN()
	s.RootZoneAWS = math.NaN()
	s.Droughty = math.NaN()
	s.CompPctSum = math.NaN()
	s.DominantPct = math.NaN()

	cols := summaryColumns()
	args := summaryArgs(nil, s)
	byName := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		byName[c] = args[i]
	}

	if v, ok := byName["aws0_5"].(*float64); !ok || v == nil || *v != 12.35 {
		t.Errorf("aws0_5 = %v, want 12.35", byName["aws0_5"])
	}
	if v, ok := byName["nccpi3corn"].(*float64); !ok || v == nil || *v != 0.823 {
		t.Errorf("nccpi3corn = %v, want 0.823", byName["nccpi3corn"])
	}
	if v, ok := byName["pwsl1pomu"].(*float64); !ok || v == nil || *v != 15 {
		t.Errorf("pwsl1pomu = %v, want 15", byName["pwsl1pomu"])
	}
	if v := byName["aws5_20"].(*float64); v != nil {
		t.Errorf("aws5_20 = %v, want nil for NaN", *v)
	}
}
