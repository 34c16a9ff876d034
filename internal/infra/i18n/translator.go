package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var LocalesFS embed.FS

const DefaultLang = "ru"

// Translator renders catalog messages. Keys missing from the selected
// language fall back to the default catalog, then to the key itself.
type Translator struct {
	lang         string
	translations map[string]string
	fallback     map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	if langCode == "" {
		langCode = DefaultLang
	}
	main, err := loadCatalog(fsys, langCode)
	if err != nil {
		return nil, err
	}
	t := &Translator{lang: langCode, translations: main}
	if langCode != DefaultLang {
		if fb, err := loadCatalog(fsys, DefaultLang); err == nil {
			t.fallback = fb
		}
	}
	return t, nil
}

func loadCatalog(fsys fs.FS, langCode string) (map[string]string, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newCatalogFromBytes(data)
}

func newCatalogFromBytes(data []byte) (map[string]string, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return translations, nil
}

func (t *Translator) Lang() string { return t.lang }

// T formats the message for key with fmt verbs.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		if format, ok = t.fallback[key]; !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
