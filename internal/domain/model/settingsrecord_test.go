package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

func TestDecodeSettingsRecord_Current(t *testing.T) {
	raw := []byte(`{"pollInterval":120,"soundEnabled":false,"toastEnabled":true,"ttsEnabled":false}`)

	rec, err := model.DecodeSettingsRecord(raw)

	require.NoError(t, err)
	require.NotNil(t, rec.Current)
	assert.Nil(t, rec.Legacy)

	s, migrated := rec.Upgrade()
	assert.False(t, migrated)
	assert.Equal(t, 120, s.PollInterval)
	assert.False(t, s.SoundEnabled)
	assert.False(t, s.SpeechEnabled)
	assert.Equal(t, "22:00", s.QuietHoursStart, "missing fields take defaults")
	assert.NotNil(t, s.Filters)
}

func TestDecodeSettingsRecord_Legacy(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSound   bool
		wantToast   bool
		wantSpeech  bool
		wantFilters []string
	}{
		{"toast only", `{"notificationMode":"toast","notificationSound":"default"}`, true, true, false, []string{}},
		{"tts only", `{"notificationMode":"tts"}`, true, false, true, []string{}},
		{"both", `{"notificationMode":"both","notificationSound":"none"}`, false, true, true, []string{}},
		{"unknown mode", `{"notificationMode":"loud","filters":["acme"]}`, true, true, true, []string{"acme"}},
		{"empty record", `{}`, true, true, true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := model.DecodeSettingsRecord([]byte(tt.raw))
			require.NoError(t, err)
			require.NotNil(t, rec.Legacy)

			s, migrated := rec.Upgrade()
			assert.True(t, migrated)
			assert.Equal(t, tt.wantSound, s.SoundEnabled, "sound")
			assert.Equal(t, tt.wantToast, s.ToastEnabled, "toast")
			assert.Equal(t, tt.wantSpeech, s.SpeechEnabled, "speech")
			assert.Equal(t, tt.wantFilters, s.Filters)
		})
	}
}

func TestDecodeSettingsRecord_LegacyKeepsSharedFields(t *testing.T) {
	raw := []byte(`{"pollInterval":900,"quietHoursEnabled":true,"micMuteEnabled":false,"notificationMode":"toast"}`)

	rec, err := model.DecodeSettingsRecord(raw)
	require.NoError(t, err)

	s, _ := rec.Upgrade()
	assert.Equal(t, 900, s.PollInterval)
	assert.True(t, s.QuietHoursEnabled)
	assert.False(t, s.MicMuteEnabled)
}

func TestDecodeSettingsRecord_NonBooleanSoundIsLegacy(t *testing.T) {
	rec, err := model.DecodeSettingsRecord([]byte(`{"soundEnabled":"yes","notificationMode":"tts"}`))

	require.NoError(t, err)
	assert.Nil(t, rec.Current)
	require.NotNil(t, rec.Legacy)
	assert.Equal(t, []string{"soundEnabled"}, rec.Skipped)

	s, migrated := rec.Upgrade()
	assert.True(t, migrated)
	assert.True(t, s.SoundEnabled)
	assert.False(t, s.ToastEnabled)
	assert.True(t, s.SpeechEnabled)
}

func TestDecodeSettingsRecord_MistypedFieldsTakeDefaults(t *testing.T) {
	raw := []byte(`{"soundEnabled":true,"pollInterval":"300","quietHoursStart":7,"filters":"acme","micMuteEnabled":false}`)

	rec, err := model.DecodeSettingsRecord(raw)

	require.NoError(t, err)
	require.NotNil(t, rec.Current)
	assert.Equal(t, []string{"filters", "pollInterval", "quietHoursStart"}, rec.Skipped)

	defaults := model.DefaultSettings()
	s, migrated := rec.Upgrade()
	assert.False(t, migrated)
	assert.Equal(t, defaults.PollInterval, s.PollInterval)
	assert.Equal(t, defaults.QuietHoursStart, s.QuietHoursStart)
	assert.Equal(t, []string{}, s.Filters)
	assert.True(t, s.SoundEnabled)
	assert.False(t, s.MicMuteEnabled)
}

func TestDecodeSettingsRecord_Malformed(t *testing.T) {
	_, err := model.DecodeSettingsRecord([]byte(`not json`))
	assert.Error(t, err)
}

func TestSettingsRecordUpgrade_Empty(t *testing.T) {
	s, migrated := model.SettingsRecord{}.Upgrade()

	assert.False(t, migrated)
	assert.Equal(t, model.DefaultSettings(), s)
}
