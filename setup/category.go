package setup

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/itchio/itch-update/native"
)

// DialogCategory tells the UI which failure dialog to show.
type DialogCategory int

const (
	// GenericUpdateFailure is used for anything we don't recognize.
	GenericUpdateFailure DialogCategory = iota

	// ReadOnlyVolumeFailure means the app can't be updated where it's
	// installed. The user has to move it, retrying won't help.
	ReadOnlyVolumeFailure
)

var categoryNames = map[DialogCategory]string{
	GenericUpdateFailure:  "cannot-update",
	ReadOnlyVolumeFailure: "read-only-volume",
}

func (c DialogCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("DialogCategory(%d)", int(c))
}

func (c DialogCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *DialogCategory) UnmarshalText(text []byte) error {
	for category, name := range categoryNames {
		if name == string(text) {
			*c = category
			return nil
		}
	}
	return errors.Errorf("unknown dialog category (%s)", text)
}

type signature struct {
	substring string
	category  DialogCategory
}

// Known installer error messages, matched case-sensitively.
var signatures = []signature{
	{native.ReadOnlyVolumeMessage, ReadOnlyVolumeFailure},
}

// Classify maps an installer error to a dialog category. It never fails:
// nil errors and errors without a recognizable message are generic.
func Classify(err error) DialogCategory {
	msg := errorMessage(err)
	if msg == "" {
		return GenericUpdateFailure
	}

	for _, sig := range signatures {
		if strings.Contains(msg, sig.substring) {
			return sig.category
		}
	}
	return GenericUpdateFailure
}

func errorMessage(err error) (msg string) {
	if err == nil {
		return ""
	}

	// Error() on a typed nil pointer, among others
	defer func() {
		if r := recover(); r != nil {
			msg = ""
		}
	}()
	return err.Error()
}
