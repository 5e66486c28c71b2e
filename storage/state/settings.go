package state

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Settings are the user preferences gating the sync engine.
// NotificationsEnabled is a tri-state: nil means never explicitly set, which
// counts as enabled.
type Settings struct {
	NotificationsEnabled *bool `json:"notifications_enabled,omitempty"`
}

func (s Settings) NotifyEnabled() bool {
	return s.NotificationsEnabled == nil || *s.NotificationsEnabled
}

func LoadSettings(store Store) (Settings, error) {
	var settings Settings
	data, err := store.Get(KeySettings)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return settings, nil
		}
		return settings, errors.Wrap(err, "loading settings")
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, errors.Wrap(err, "decoding settings")
	}
	return settings, nil
}

func SaveSettings(store Store, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "encoding settings")
	}
	return errors.Wrap(store.Set(KeySettings, data), "saving settings")
}
