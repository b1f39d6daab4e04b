package usecase

import (
	"strings"

	"prospect-video-generator/internal/domain/model"
)

// MappingField names one of the four prospect fields.
type MappingField string

const (
	FieldFirstName  MappingField = "firstName"
	FieldLastName   MappingField = "lastName"
	FieldCompany    MappingField = "company"
	FieldWebsiteURL MappingField = "websiteUrl"
)

// KeywordRule matches a header to a field when the lower-cased header contains any keyword.
type KeywordRule struct {
	Field    MappingField
	Keywords []string
}

// DefaultKeywordTable is evaluated in order; a header belongs to the first rule it matches,
// so "prenom" resolves to firstName before the "nom" rule of lastName is tried.
var DefaultKeywordTable = []KeywordRule{
	{Field: FieldFirstName, Keywords: []string{"prenom", "firstname", "first_name"}},
	{Field: FieldLastName, Keywords: []string{"nom", "lastname", "last_name"}},
	{Field: FieldCompany, Keywords: []string{"entreprise", "company", "societe"}},
	{Field: FieldWebsiteURL, Keywords: []string{"url", "site", "website"}},
}

type Mapper struct {
	table []KeywordRule
}

func NewMapper(table []KeywordRule) *Mapper {
	if len(table) == 0 {
		table = DefaultKeywordTable
	}
	return &Mapper{table: table}
}

var defaultMapper = NewMapper(DefaultKeywordTable)

// AutoDetectMapping suggests a partial mapping using DefaultKeywordTable.
func AutoDetectMapping(headers []string) model.MappingConfig {
	return defaultMapper.AutoDetect(headers)
}

// AutoDetect assigns at most one header per field. The first matching header
// wins; later headers classified to an already assigned field are ignored.
func (m *Mapper) AutoDetect(headers []string) model.MappingConfig {
	var out model.MappingConfig
	for _, header := range headers {
		field, ok := m.classify(header)
		if !ok {
			continue
		}
		slot := fieldSlot(&out, field)
		if slot != nil && *slot == "" {
			*slot = header
		}
	}
	return out
}

func (m *Mapper) classify(header string) (MappingField, bool) {
	lower := strings.ToLower(header)
	for _, rule := range m.table {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Field, true
			}
		}
	}
	return "", false
}

func fieldSlot(cfg *model.MappingConfig, f MappingField) *string {
	switch f {
	case FieldFirstName:
		return &cfg.FirstName
	case FieldLastName:
		return &cfg.LastName
	case FieldCompany:
		return &cfg.Company
	case FieldWebsiteURL:
		return &cfg.WebsiteURL
	}
	return nil
}

// ValidateMapping returns the mapping and true only when all four fields are set.
// The same header may back several fields.
func ValidateMapping(partial model.MappingConfig) (model.MappingConfig, bool) {
	if !partial.Complete() {
		return model.MappingConfig{}, false
	}
	return partial, true
}

// ValidateMappingFor additionally requires every header to exist in the CSV.
func ValidateMappingFor(partial model.MappingConfig, headers []string) (model.MappingConfig, bool) {
	cfg, ok := ValidateMapping(partial)
	if !ok || len(cfg.Unknown(headers)) > 0 {
		return model.MappingConfig{}, false
	}
	return cfg, true
}
