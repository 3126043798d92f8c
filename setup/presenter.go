package setup

import (
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"

	"github.com/itchio/itch-update/localize"
)

type dialogStrings struct {
	title   string
	message string
}

var dialogKeys = map[DialogCategory]dialogStrings{
	GenericUpdateFailure:  {"update.cannot_update.title", "update.cannot_update.message"},
	ReadOnlyVolumeFailure: {"update.read_only.title", "update.read_only.message"},
}

var openURL = open.Start

// JSONPresenter reports update failures as `update-failed` JSON lines, for
// the app's UI to render.
type JSONPresenter struct {
	AppName   string
	Localizer *localize.Localizer

	// Opened in the user's browser for failures they have to fix
	// themselves, if set.
	HelpURL string
}

var _ DialogPresenter = (*JSONPresenter)(nil)

func (p *JSONPresenter) Present(category DialogCategory, err error) {
	payload := UpdateFailed{
		Category: category,
	}
	if err != nil {
		payload.Error = err.Error()
	}

	keys, ok := dialogKeys[category]
	if !ok {
		keys = dialogKeys[GenericUpdateFailure]
	}
	if p.Localizer != nil {
		replacements := localize.Replacements{
			"appName": p.AppName,
			"error":   payload.Error,
		}
		payload.Title = p.Localizer.T(keys.title, replacements)
		payload.Message = p.Localizer.T(keys.message, replacements)
	} else {
		payload.Message = payload.Error
	}

	log.Warnf("Presenting %s dialog: %s", category, payload.Message)
	Emit(payload)

	if category == ReadOnlyVolumeFailure && p.HelpURL != "" {
		if err := openURL(p.HelpURL); err != nil {
			log.Warnf("Could not open help page: %v", err)
		}
	}
}
