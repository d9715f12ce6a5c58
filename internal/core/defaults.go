package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TranscriptSetting controls what happens to session transcripts.
type TranscriptSetting string

const (
	TranscriptSave          TranscriptSetting = "save"
	TranscriptSaveWorkspace TranscriptSetting = "save-workspace"
	TranscriptNone          TranscriptSetting = "none"
)

// AccessType controls how attendees join a room.
type AccessType string

const (
	AccessOpen     AccessType = "open"
	AccessPasscode AccessType = "passcode"
)

// MaxOutputLanguages is the most output languages a session may carry.
const MaxOutputLanguages = 8

// SessionDefaults is the organizer's fallback configuration for one import.
// It is immutable once the import starts.
type SessionDefaults struct {
	Timezone          string            `json:"timezone" validate:"omitempty,timezone"`
	AccountID         string            `json:"accountId"`
	StartingLanguage  string            `json:"startingLanguage" validate:"omitempty,bcp47_language_tag"`
	AutoSelect        bool              `json:"autoSelect"`
	Languages         []string          `json:"languages" validate:"max=8,unique,dive,required,bcp47_language_tag"`
	GlossaryID        string            `json:"glossaryId"`
	TranscriptSetting TranscriptSetting `json:"transcriptSetting" validate:"omitempty,oneof=save save-workspace none"`
	AccessType        AccessType        `json:"accessType" validate:"omitempty,oneof=open passcode"`
	FloorAudio        bool              `json:"floorAudio"`
	VoicePack         string            `json:"voicePack"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the defaults against their declared constraints.
// The returned error wraps ErrInvalidDefaults and lists every failing field.
func (d SessionDefaults) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidDefaults, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDefaults, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", fe.Field())
	case "timezone":
		return fmt.Sprintf("%s: unknown timezone %q", fe.Field(), fe.Value())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s: at most %s entries", fe.Field(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s: entries must be unique", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", fe.Field(), fe.Param())
	case "bcp47_language_tag":
		return fmt.Sprintf("%s: %q is not a language code", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
	}
}

// WithFallback returns d with empty fields filled from base. Used to layer an
// organizer's per-import settings over workspace defaults.
func (d SessionDefaults) WithFallback(base SessionDefaults) SessionDefaults {
	out := d
	if out.Timezone == "" {
		out.Timezone = base.Timezone
	}
	if out.AccountID == "" {
		out.AccountID = base.AccountID
	}
	if out.StartingLanguage == "" {
		out.StartingLanguage = base.StartingLanguage
	}
	if len(out.Languages) == 0 {
		out.Languages = append([]string(nil), base.Languages...)
	}
	if out.GlossaryID == "" {
		out.GlossaryID = base.GlossaryID
	}
	if out.TranscriptSetting == "" {
		out.TranscriptSetting = base.TranscriptSetting
	}
	if out.AccessType == "" {
		out.AccessType = base.AccessType
	}
	if out.VoicePack == "" {
		out.VoicePack = base.VoicePack
	}
	return out
}
