package core

import (
	"errors"
	"strings"
	"testing"
)

func TestSessionDefaults_Validate(t *testing.T) {
	tests := []struct {
		name     string
		defaults SessionDefaults
		wantErr  string // substring; empty means valid
	}{
		{
			name:     "zero value is valid",
			defaults: SessionDefaults{},
		},
		{
			name: "fully populated",
			defaults: SessionDefaults{
				Timezone:          "Europe/Paris",
				StartingLanguage:  "fr",
				Languages:         []string{"en", "de", "es"},
				TranscriptSetting: TranscriptSaveWorkspace,
				AccessType:        AccessPasscode,
			},
		},
		{
			name:     "unknown timezone",
			defaults: SessionDefaults{Timezone: "Mars/Olympus"},
			wantErr:  "unknown timezone",
		},
		{
			name:     "too many languages",
			defaults: SessionDefaults{Languages: []string{"en", "fr", "de", "es", "it", "pt", "nl", "sv", "da"}},
			wantErr:  "at most 8",
		},
		{
			name:     "duplicate languages",
			defaults: SessionDefaults{Languages: []string{"en", "en"}},
			wantErr:  "unique",
		},
		{
			name:     "bad transcript setting",
			defaults: SessionDefaults{TranscriptSetting: "archive"},
			wantErr:  "must be one of",
		},
		{
			name:     "bad access type",
			defaults: SessionDefaults{AccessType: "public"},
			wantErr:  "must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.defaults.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDefaults) {
				t.Errorf("Validate() error should wrap ErrInvalidDefaults: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSessionDefaults_WithFallback(t *testing.T) {
	base := SessionDefaults{
		Timezone:   "UTC",
		AccountID:  "workspace",
		Languages:  []string{"en"},
		AccessType: AccessOpen,
	}
	own := SessionDefaults{AccountID: "mine", AccessType: AccessPasscode}

	got := own.WithFallback(base)

	if got.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want fallback UTC", got.Timezone)
	}
	if got.AccountID != "mine" || got.AccessType != AccessPasscode {
		t.Errorf("own values were overwritten: %+v", got)
	}
	if len(got.Languages) != 1 || got.Languages[0] != "en" {
		t.Errorf("Languages = %v, want [en]", got.Languages)
	}

	got.Languages[0] = "fr"
	if base.Languages[0] != "en" {
		t.Error("WithFallback must copy the base language slice")
	}
}
