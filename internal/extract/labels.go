package extract

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Field is a semantic slot of the detail page's info block
type Field string

const (
	FieldTitle         Field = "title"
	FieldRating        Field = "rating"
	FieldStatus        Field = "status"
	FieldRelease       Field = "release"
	FieldType          Field = "type"
	FieldStudio        Field = "studio"
	FieldDuration      Field = "duration"
	FieldTotalEpisodes Field = "total_episodes"
	FieldGenre         Field = "genre"
)

// Labels lists, per field, the info-block labels to try in priority order.
// Labels are compared lower-cased.
type Labels map[Field][]string

func DefaultLabels() Labels {
	return Labels{
		FieldTitle:         {"judul", "title"},
		FieldRating:        {"skor", "rating", "score"},
		FieldStatus:        {"status"},
		FieldRelease:       {"tanggal rilis", "published", "rilis"},
		FieldType:          {"tipe", "type"},
		FieldStudio:        {"studio"},
		FieldDuration:      {"durasi", "duration"},
		FieldTotalEpisodes: {"total episode", "episodes"},
		FieldGenre:         {"genre", "genres"},
	}
}

// LoadLabels reads a YAML synonym table and layers it over the defaults. A
// field present in the file replaces the default list for that field.
//
//	rating: [skor, rating, nilai]
//	studio: [studio, produksi]
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if path == "" {
		return labels, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read labels file %s", path)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(b, &overrides); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal labels file %s", path)
	}

	for field, synonyms := range overrides {
		cleaned := make([]string, 0, len(synonyms))
		for _, s := range synonyms {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			labels[Field(strings.ToLower(field))] = cleaned
		}
	}

	return labels, nil
}

// Lookup returns the first non-empty value among the field's synonyms.
func (l Labels) Lookup(info map[string]string, field Field) string {
	for _, key := range l[field] {
		if v := info[key]; v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether label is one of the field's synonyms.
func (l Labels) Has(field Field, label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, key := range l[field] {
		if key == label {
			return true
		}
	}
	return false
}
