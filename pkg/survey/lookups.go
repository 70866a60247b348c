package survey

import (
	"math"
	"strings"
)

// OrganicTextureCodes are the RV texture codes that mark a horizon as
// organic material.
var OrganicTextureCodes = map[string]bool{
	"CE":      true,
	"COP-MAT": true,
	"HPM":     true,
	"MPM":     true,
	"MPT":     true,
	"MUCK":    true,
	"PDOM":    true,
	"PEAT":    true,
	"SPM":     true,
	"UDOM":    true,
}

// InLieuOrganicTextures are the in-lieu texture terms that mark a horizon's
// texture group as organic when no RV texture code matches.
var InLieuOrganicTextures = map[string]bool{
	"Slightly decomposed plant material":   true,
	"Moderately decomposed plant material": true,
	"Highly decomposed plant material":     true,
	"Undecomposed plant material":          true,
	"Muck":                                 true,
	"Mucky peat":                           true,
	"Peat":                                 true,
	"Coprogenous earth":                    true,
}

// MasterIsOrganic reports whether a master horizon designator marks organic
// material (O horizons and L limnic layers).
func MasterIsOrganic(master string) bool {
	switch strings.ToUpper(strings.TrimSpace(master)) {
	case "O", "L":
		return true
	}
	return false
}

// MaxRestrictionDepthCm is the depth beyond which restrictive layers are
// ignored; the modeled root zone never extends past it.
const MaxRestrictionDepthCm = 150

// bedrockKinds are restriction kinds that end the soil profile outright.
var bedrockKinds = map[string]bool{
	"Lithic bedrock":     true,
	"Paralithic bedrock": true,
	"Densic bedrock":     true,
}

// rootLimitingKinds are restriction kinds that truncate the commodity root
// zone: the bedrock kinds plus dense or cemented layers.
var rootLimitingKinds = map[string]bool{
	"Lithic bedrock":     true,
	"Paralithic bedrock": true,
	"Densic bedrock":     true,
	"Densic material":    true,
	"Fragipan":           true,
	"Duripan":            true,
	"Sulfuric":           true,
}

// IsBedrockKind reports whether a restriction kind is a bedrock contact.
func IsBedrockKind(kind string) bool {
	return bedrockKinds[kind]
}

// IsRootLimitingKind reports whether a restriction kind truncates the
// commodity root zone.
func IsRootLimitingKind(kind string) bool {
	return rootLimitingKinds[kind]
}

// wetDrainageClasses qualify a component as a potential wetland when its
// hydric rating leaves the question open.
var wetDrainageClasses = map[string]bool{
	"Poorly drained":      true,
	"Very poorly drained": true,
}

// IsWetDrainageClass reports whether a drainage class indicates wetness.
func IsWetDrainageClass(class string) bool {
	return wetDrainageClasses[class]
}

// wetnessPhaseKeywords in a phase or map unit name mark an altered or
// flooded landscape for the wetland percentage.
var wetnessPhaseKeywords = []string{
	"drained", "undrained", "channeled", "protected", "ponded", "flooded",
}

// HasWetnessPhaseKeyword reports whether s contains any wetness phase
// keyword, case-insensitively.
func HasWetnessPhaseKeyword(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, kw := range wetnessPhaseKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Lookups carries the precomputed per-run sets and maps the engine consults
// while aggregating. All fields are read-only during a run; adapters build
// them once before aggregation starts.
type Lookups struct {
	// OrganicHz marks horizon keys whose RV texture group is organic.
	OrganicHz map[string]bool

	// HisticCokeys marks components exempt from organic surface screening:
	// Histosols and components with a histic epipedon.
	HisticCokeys map[string]bool

	// MajorEarthy marks major components that are not miscellaneous areas.
	MajorEarthy map[string]bool

	// BedrockDepth is the shallowest bedrock restriction above 150 cm,
	// by component key.
	BedrockDepth map[string]float64

	// RootRestrictionDepth is the shallowest root-limiting restriction
	// above 150 cm, by component key.
	RootRestrictionDepth map[string]float64

	// FragVol is the summed rock fragment volume percent by horizon key.
	FragVol map[string]float64

	// WetPhaseMukeys marks map units whose name carries a wetness phase
	// keyword.
	WetPhaseMukeys map[string]bool

	// NCCPI is the commodity productivity rating vector by component key.
	NCCPI map[string]NCCPI

	// nccpiSeen tracks which commodity rules contributed a row per
	// component, one bit per crop index.
	nccpiSeen map[string]uint8
}

// NewLookups returns an empty, ready-to-fill lookup set.
func NewLookups() *Lookups {
	return &Lookups{
		OrganicHz:            make(map[string]bool),
		HisticCokeys:         make(map[string]bool),
		MajorEarthy:          make(map[string]bool),
		BedrockDepth:         make(map[string]float64),
		RootRestrictionDepth: make(map[string]float64),
		FragVol:              make(map[string]float64),
		WetPhaseMukeys:       make(map[string]bool),
		NCCPI:                make(map[string]NCCPI),
		nccpiSeen:            make(map[string]uint8),
	}
}

// HorizonIsOrganic reports whether a horizon is organic material, by texture
// group membership or by master designator.
func (l *Lookups) HorizonIsOrganic(h *Horizon) bool {
	return l.OrganicHz[h.ChKey] || MasterIsOrganic(h.Master)
}

// HorizonFragVol returns the horizon's rock fragment volume percent, 0 when
// none is recorded.
func (l *Lookups) HorizonFragVol(chKey string) float64 {
	if v, ok := l.FragVol[chKey]; ok {
		return v
	}
	return 0
}

// AddComponent records a component's flags: major earthy membership and
// exemption from organic surface screening.
func (l *Lookups) AddComponent(c *Component) {
	if c.MajorEarthy() {
		l.MajorEarthy[c.CoKey] = true
	}
	if c.Histic() {
		l.HisticCokeys[c.CoKey] = true
	}
}

// AddMapUnit records a map unit whose name marks an altered or flooded
// landscape, bypassing the drainage-class wetness test for its components.
func (l *Lookups) AddMapUnit(mu MapUnit) {
	if HasWetnessPhaseKeyword(mu.Name) {
		l.WetPhaseMukeys[mu.MuKey] = true
	}
}

// AddTexture records a horizon whose representative texture is organic,
// either by RV texture code or by in-lieu term.
func (l *Lookups) AddTexture(tx TextureRow) {
	if OrganicTextureCodes[tx.Code] || InLieuOrganicTextures[tx.InLieu] {
		l.OrganicHz[tx.ChKey] = true
	}
}

// AddFragVol folds one fragment entry's volume percent into the horizon's
// total. NaN entries contribute nothing.
func (l *Lookups) AddFragVol(chKey string, vol float64) {
	if math.IsNaN(vol) {
		return
	}
	l.FragVol[chKey] += vol
}

// AddRestriction records a restriction depth, keeping the shallowest
// root-limiting and bedrock depths per component. Restrictions at or below
// MaxRestrictionDepthCm or with an unpopulated depth are ignored.
func (l *Lookups) AddRestriction(r Restriction) {
	if math.IsNaN(r.Depth) || r.Depth >= MaxRestrictionDepthCm {
		return
	}
	if !IsRootLimitingKind(r.Kind) {
		return
	}
	if d, ok := l.RootRestrictionDepth[r.CoKey]; !ok || r.Depth < d {
		l.RootRestrictionDepth[r.CoKey] = r.Depth
	}
	if IsBedrockKind(r.Kind) {
		if d, ok := l.BedrockDepth[r.CoKey]; !ok || r.Depth < d {
			l.BedrockDepth[r.CoKey] = r.Depth
		}
	}
}

// AddInterp folds one commodity rating row into the NCCPI map. Rows whose
// rule key is not a commodity rule are ignored.
func (l *Lookups) AddInterp(ci CropInterp) {
	crop, ok := CropForRule(ci.RuleKey)
	if !ok {
		return
	}
	n, seen := l.NCCPI[ci.CoKey]
	if !seen {
		n = NaNNCCPI()
	}
	n[crop] = ci.Rating
	l.NCCPI[ci.CoKey] = n
	l.nccpiSeen[ci.CoKey] |= 1 << crop
}

// PruneIncompleteInterps removes rating vectors that are missing one or more
// commodity rows and returns the component keys it removed, so callers can
// report them. A present row with a null rating is not missing.
func (l *Lookups) PruneIncompleteInterps() []string {
	const allCrops = 1<<NumCrops - 1
	var pruned []string
	for cokey, seen := range l.nccpiSeen {
		if seen != allCrops {
			delete(l.NCCPI, cokey)
			pruned = append(pruned, cokey)
		}
	}
	return pruned
}
