package config

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/viper"
)

const settingsSection = "settings"

// Settings keys
const (
	KeyBuildLoader = "build_loader"
	KeyProjectID   = "project_id"
)

// Settings is the single-section ini file remembering values between runs,
// such as the last build loader used.
type Settings struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// LoadSettings reads path, creating it with an empty section when missing.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	s := &Settings{v: v, path: path}
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Settings) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(settingsSection + "." + key)
}

// Set stores value and writes the file immediately.
func (s *Settings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(settingsSection+"."+key, value)
	return s.save()
}

func (s *Settings) BuildLoader() string {
	return s.Get(KeyBuildLoader)
}

func (s *Settings) SetBuildLoader(path string) error {
	return s.Set(KeyBuildLoader, path)
}

func (s *Settings) save() error {
	if len(s.v.AllKeys()) == 0 {
		return os.WriteFile(s.path, []byte("["+settingsSection+"]\n"), 0o644)
	}
	return s.v.WriteConfigAs(s.path)
}
