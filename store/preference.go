package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/model"
)

// Preference stores the user's selected interest tags. The tags are stored as
// entered; matching normalizes them on the fly.
type Preference struct {
	backend Backend
}

// NewPreference returns the preference store backed by the given backend.
func NewPreference(backend Backend) *Preference {
	return &Preference{backend: backend}
}

// Load reads the alert preference. A missing or corrupt snapshot yields an empty
// preference, which disables alert matching entirely.
func (p *Preference) Load() model.AlertPreference {
	data, err := p.backend.Load(KeyAlertPreference)
	if err != nil || len(data) == 0 {
		return model.AlertPreference{Roles: []string{}}
	}
	var preference model.AlertPreference
	if err := json.Unmarshal(data, &preference); err != nil {
		log.Debugf("discarding corrupt `%s` state: %s", KeyAlertPreference, err.Error())
		return model.AlertPreference{Roles: []string{}}
	}
	if preference.Roles == nil {
		preference.Roles = []string{}
	}
	return preference
}

// Save replaces the alert preference.
func (p *Preference) Save(preference model.AlertPreference) error {
	return errors.Wrap(
		saveJSON(p.backend, KeyAlertPreference, preference),
		"unable to save the alert preference",
	)
}
