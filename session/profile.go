package session

import (
	"encoding/json"

	"github.com/quasilyte/gdata"
	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/config"
)

// Profile is the player data stored on disk between sessions.
type Profile struct {
	Nickname string              `json:"nickname"`
	Bindings map[string][]string `json:"bindings"`
}

var gdataManager *gdata.Manager
var gdataInitialized bool

// InitPersistence opens the gdata store. Persistence failures are logged and
// tolerated; the session runs with defaults.
func InitPersistence(log zerolog.Logger) error {
	m, err := gdata.Open(gdata.Config{
		AppName: "stardrift",
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not initialize persistence")
		return err
	}
	gdataManager = m
	gdataInitialized = true
	return nil
}

// LoadProfile reads the saved profile, or nil when none exists.
func LoadProfile(log zerolog.Logger) (*Profile, error) {
	if !gdataInitialized || gdataManager == nil {
		return nil, nil
	}

	data, err := gdataManager.LoadItem("profile")
	if err != nil {
		log.Warn().Err(err).Msg("could not load profile")
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		log.Warn().Err(err).Msg("could not parse saved profile")
		return nil, err
	}

	return &profile, nil
}

// SaveProfile writes the profile to disk.
func SaveProfile(log zerolog.Logger, p *Profile) error {
	if !gdataInitialized || gdataManager == nil {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Msg("could not serialize profile")
		return err
	}

	if err := gdataManager.SaveItem("profile", data); err != nil {
		log.Warn().Err(err).Msg("could not save profile")
		return err
	}
	return nil
}

// ApplyProfile installs the saved bindings into the global input config.
func ApplyProfile(p *Profile) {
	if p == nil {
		return
	}
	for name, keys := range p.Bindings {
		action := config.ActionByName(name)
		if action == config.ActionNone || len(keys) == 0 {
			continue
		}
		config.Input.Rebind(action, keys...)
	}
}

// SnapshotProfile captures the current nickname and bindings for saving.
func SnapshotProfile(nickname string) *Profile {
	bindings := make(map[string][]string, len(config.Input.Bindings))
	for action, binding := range config.Input.Bindings {
		bindings[config.ActionName(action)] = append([]string(nil), binding.Keys...)
	}
	return &Profile{
		Nickname: nickname,
		Bindings: bindings,
	}
}
