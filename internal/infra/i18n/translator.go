package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var LocalesFS embed.FS

type Translator struct {
	lang         string
	translations map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns key itself when no translation exists, so English UI strings can
// double as keys.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.translations[key]
	if !ok {
		format = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }

// Catalog holds one Translator per language and picks one per request.
type Catalog struct {
	byLang   map[string]*Translator
	fallback *Translator
}

// NewCatalog loads every language; the first one is the fallback.
func NewCatalog(fsys fs.FS, langs ...string) (*Catalog, error) {
	if len(langs) == 0 {
		return nil, fmt.Errorf("no languages given")
	}
	c := &Catalog{byLang: make(map[string]*Translator, len(langs))}
	for _, l := range langs {
		t, err := NewTranslator(fsys, l)
		if err != nil {
			return nil, err
		}
		c.byLang[l] = t
		if c.fallback == nil {
			c.fallback = t
		}
	}
	return c, nil
}

// Pick matches an Accept-Language header on primary subtags, in header order.
// Quality values are ignored.
func (c *Catalog) Pick(acceptLanguage string) *Translator {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if t, ok := c.byLang[primary]; ok {
			return t
		}
	}
	return c.fallback
}
