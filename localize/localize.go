package localize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Xuanwo/go-locale"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type AssetLoader func(path string) ([]byte, error)

type Strings map[string]string

type StringsSet map[string]Strings

type Localizer struct {
	loadAsset  AssetLoader
	lang       string
	stringsSet StringsSet
}

func NewLocalizer(loadAsset AssetLoader) (*Localizer, error) {
	l := &Localizer{
		loadAsset:  loadAsset,
		lang:       "en",
		stringsSet: make(StringsSet),
	}
	err := l.LoadLocale("en")
	if err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Localizer) Lang() string {
	return l.lang
}

func (l *Localizer) SetLang(lang string) {
	log.Debugf("Switching to lang %s", lang)
	l.lang = normalize(lang)
}

// UseLang loads lang and switches to it, falling back to its base
// language (`fr` for `fr-CA`). It returns false if neither is available,
// in which case English stays in use.
func (l *Localizer) UseLang(lang string) bool {
	candidates := []string{normalize(lang)}
	if i := strings.Index(candidates[0], "_"); i > 0 {
		candidates = append(candidates, candidates[0][:i])
	}

	for _, candidate := range candidates {
		if _, ok := l.stringsSet[candidate]; !ok {
			if err := l.LoadLocale(candidate); err != nil {
				continue
			}
		}
		l.SetLang(candidate)
		return true
	}
	return false
}

// UseSystemLang switches to the language of the user's system, if we
// have strings for it.
func (l *Localizer) UseSystemLang() {
	tag, err := locale.Detect()
	if err != nil {
		log.Debugf("Could not detect system locale: %v", err)
		return
	}

	if !l.UseLang(tag.String()) {
		log.Debugf("No strings for system locale %s, staying with %s", tag, l.lang)
	}
}

func (l *Localizer) LoadLocale(locale string) error {
	locale = normalize(locale)

	assetPath := fmt.Sprintf("data/locales/%s.json", locale)
	log.Debugf("Trying to load locale %s", locale)

	localeBytes, err := l.loadAsset(assetPath)
	if err != nil {
		return errors.WithMessagef(err, "while looking for locale file %s", locale)
	}

	strings := Strings{}
	err = json.Unmarshal(localeBytes, &strings)
	if err != nil {
		return errors.WithMessagef(err, "while parsing locale file %s", locale)
	}

	l.stringsSet[locale] = strings

	return nil
}

func normalize(locale string) string {
	return strings.Replace(locale, "-", "_", -1)
}

type Replacements map[string]string

func (l *Localizer) T(key string, args ...Replacements) string {
	for _, lang := range []string{l.lang, "en"} {
		ss := l.stringsSet[lang]
		rule, ok := ss[key]
		if !ok {
			continue
		}

		result := rule
		if len(args) > 0 {
			for k, v := range args[0] {
				result = strings.Replace(result, "{{"+k+"}}", v, -1)
			}
		}

		return result
	}

	return key
}
