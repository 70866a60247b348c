package survey

// MapUnit is one survey map unit as read from a source: the key plus the
// fields the engine needs from the mapunit table.
type MapUnit struct {
	MuKey string
	Name  string
}

// TextureRow is one representative texture entry for a horizon: the texture
// code plus the in-lieu term used when no code applies.
type TextureRow struct {
	ChKey  string
	Code   string
	InLieu string
}

// FragmentRow is one rock fragment entry for a horizon, volume percents.
// Missing values are NaN.
type FragmentRow struct {
	ChKey string
	RV    float64
	Low   float64
	High  float64
}

// HorizonReader streams horizon rows. Read returns io.EOF after the last
// row. Implementations must yield rows sorted by component key, then top
// depth ascending; the engine groups consecutive rows by component key.
type HorizonReader interface {
	Read() (Horizon, error)
	Close() error
}

// ComponentReader streams component rows sorted by map unit key. Read
// returns io.EOF after the last row.
type ComponentReader interface {
	Read() (Component, error)
	Close() error
}

// RestrictionReader streams restriction rows. No ordering is required; the
// engine keeps per-component minima as rows arrive. Read returns io.EOF
// after the last row.
type RestrictionReader interface {
	Read() (Restriction, error)
	Close() error
}

// InterpReader streams commodity interpretation rows. Read returns io.EOF
// after the last row.
type InterpReader interface {
	Read() (CropInterp, error)
	Close() error
}

// MapUnitReader streams map unit rows. Read returns io.EOF after the last
// row.
type MapUnitReader interface {
	Read() (MapUnit, error)
	Close() error
}

// TextureReader streams representative texture rows. Read returns io.EOF
// after the last row.
type TextureReader interface {
	Read() (TextureRow, error)
	Close() error
}

// FragmentReader streams rock fragment rows. Read returns io.EOF after the
// last row.
type FragmentReader interface {
	Read() (FragmentRow, error)
	Close() error
}

// SummaryWriter receives finished map unit summaries. Close flushes any
// buffered rows before releasing resources.
type SummaryWriter interface {
	Write(MapUnitSummary) error
	Close() error
}

// ResultWriter receives rows from the generic group-and-reduce path.
type ResultWriter interface {
	Write(AggResult) error
	Close() error
}
