package matcher

import (
	"fmt"
	"sort"
	"strings"
)

// RawRecord is an untyped entity record as stored by callers. Keys are
// attribute names, values are strings, numbers, booleans or string lists.
type RawRecord map[string]any

// TraitKind discriminates canonical field values.
type TraitKind int

const (
	TraitNumber TraitKind = iota
	TraitText
)

// TraitField is one normalized attribute of an entity.
type TraitField struct {
	Name   string
	Kind   TraitKind
	Number float64 // valid when Kind == TraitNumber, always in [0,1]
	Text   string  // valid when Kind == TraitText
}

// CanonicalTraits is the ordered, normalized feature record for an entity.
// It is built once per entity and never mutated afterwards.
type CanonicalTraits struct {
	fields []TraitField
}

// Fields returns the normalized fields in stable (name-sorted) order.
func (t CanonicalTraits) Fields() []TraitField {
	return t.fields
}

// Text concatenates all fields into a single string for text embedding.
func (t CanonicalTraits) Text() string {
	parts := make([]string, 0, len(t.fields))
	for _, f := range t.fields {
		switch f.Kind {
		case TraitText:
			if f.Text != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Text))
			}
		case TraitNumber:
			parts = append(parts, fmt.Sprintf("%s: %.2f", f.Name, f.Number))
		}
	}
	return strings.Join(parts, " ")
}

// ordinalDefault is used for unknown labels in any ordinal table.
const ordinalDefault = 0.5

// Ordinal label tables. Values are fixed points in [0,1].
var (
	sizeScale = map[string]float64{
		"tiny":   0.1,
		"small":  0.3,
		"medium": 0.5,
		"large":  0.7,
		"giant":  0.9,
	}
	energyScale = map[string]float64{
		"low":       0.2,
		"moderate":  0.5,
		"high":      0.8,
		"very_high": 1.0,
	}
	trainingScale = map[string]float64{
		"none":         0.0,
		"basic":        0.33,
		"intermediate": 0.66,
		"advanced":     1.0,
	}
	socializationScale = map[string]float64{
		"poor":      0.2,
		"fair":      0.4,
		"good":      0.7,
		"excellent": 1.0,
	}
)

// ordinalScales maps field names to their label tables.
var ordinalScales = map[string]map[string]float64{
	"size":                sizeScale,
	"energy_level":        energyScale,
	"energy_affinity":     energyScale,
	"training_level":      trainingScale,
	"socialization_level": socializationScale,
}

// numericScales maps numeric field names to the divisor that brings them
// into [0,1]. Values beyond the divisor clamp to 1.
var numericScales = map[string]float64{
	"age_years":        85,
	"rating":           5,
	"review_count":     1000,
	"years_experience": 20,
	"hourly_rate":      200,
	"max_hourly_rate":  200,
	"response_rate":    1,
}

// Normalize converts a raw entity record into canonical traits. It is a
// pure, total function: unknown labels use the midpoint default and
// unrecognized value types are skipped rather than rejected.
func Normalize(rec RawRecord) CanonicalTraits {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]TraitField, 0, len(names))
	for _, name := range names {
		if f, ok := normalizeField(name, rec[name]); ok {
			fields = append(fields, f)
		}
	}
	return CanonicalTraits{fields: fields}
}

func normalizeField(name string, value any) (TraitField, bool) {
	switch v := value.(type) {
	case bool:
		n := 0.0
		if v {
			n = 1.0
		}
		return TraitField{Name: name, Kind: TraitNumber, Number: n}, true

	case string:
		if scale, ok := ordinalScales[name]; ok {
			return TraitField{Name: name, Kind: TraitNumber, Number: ordinalValue(scale, v)}, true
		}
		return TraitField{Name: name, Kind: TraitText, Text: v}, true

	case []string:
		return TraitField{Name: name, Kind: TraitText, Text: strings.Join(v, " ")}, true

	case float64:
		return TraitField{Name: name, Kind: TraitNumber, Number: scaleNumeric(name, v)}, true

	case float32:
		return TraitField{Name: name, Kind: TraitNumber, Number: scaleNumeric(name, float64(v))}, true

	case int:
		return TraitField{Name: name, Kind: TraitNumber, Number: scaleNumeric(name, float64(v))}, true

	case int64:
		return TraitField{Name: name, Kind: TraitNumber, Number: scaleNumeric(name, float64(v))}, true

	default:
		return TraitField{}, false
	}
}

func ordinalValue(scale map[string]float64, label string) float64 {
	if v, ok := scale[strings.ToLower(strings.TrimSpace(label))]; ok {
		return v
	}
	return ordinalDefault
}

func scaleNumeric(name string, v float64) float64 {
	divisor, ok := numericScales[name]
	if !ok || divisor <= 0 {
		return clamp01(v)
	}
	return clamp01(v / divisor)
}

// PetRecord flattens a pet profile into a raw record for normalization.
func PetRecord(p PetProfile) RawRecord {
	return RawRecord{
		"species":              p.Species,
		"breed":                p.Breed,
		"size":                 p.Size,
		"energy_level":         p.EnergyLevel,
		"training_level":       p.TrainingLevel,
		"socialization_level":  p.SocializationLevel,
		"age_years":            p.AgeYears,
		"temperament":          p.Temperament,
		"special_needs":        p.SpecialNeeds,
		"good_with_children":   p.GoodWithChildren,
		"good_with_other_pets": p.GoodWithOtherPets,
	}
}

// RequesterRecord flattens a requester (pet + owner preferences).
func RequesterRecord(r RequesterProfile) RawRecord {
	rec := PetRecord(r.Pet)
	rec["services"] = r.Preferences.Services
	rec["max_hourly_rate"] = r.Preferences.MaxHourlyRate
	rec["requires_insurance"] = r.Preferences.RequiresInsurance
	rec["preferred_traits"] = r.Preferences.PreferredTraits
	return rec
}

// SitterRecord flattens a sitter profile into a raw record.
func SitterRecord(s SitterProfile) RawRecord {
	return RawRecord{
		"bio":              s.Bio,
		"rating":           s.Rating,
		"review_count":     s.ReviewCount,
		"years_experience": s.YearsExperience,
		"hourly_rate":      s.HourlyRate,
		"certifications":   s.Certifications,
		"services":         s.Services,
		"accepted_sizes":   s.AcceptedSizes,
		"energy_affinity":  s.EnergyAffinity,
		"insured":          s.Insured,
		"response_rate":    s.ResponseRate,
	}
}
