// Package conf loads WKMP's ambient configuration: process-wide settings
// that are not subject to the range-validated runtime parameter registry
// of §6.2 (internal/params) — service addresses, the datastore dialect,
// logging, and outbound HTTP behavior.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Settings is the top-level ambient configuration, unmarshaled from YAML
// plus environment overrides.
type Settings struct {
	Service struct {
		Name string // "wkmp-ap" or "wkmp-ai"
		Host string
		Port int
	}

	Log struct {
		Level string // trace, debug, info, warn, error, fatal
		JSON  bool
	}

	Database struct {
		Dialect string // "sqlite" or "mysql"
		DSN     string
	}

	Storage struct {
		LibraryRoot string // root folder of the music library (Core B)
	}

	HTTPClient struct {
		UserAgent        string
		TotalTimeoutMs   int
		ConnectTimeoutMs int
	}

	Telemetry struct {
		SentryDSN string
		Enabled   bool
	}

	Import struct {
		MaxConcurrentFiles int
		AcoustIDAPIKey     string
		EssentiaBinary     string
	}
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configPath (if non-empty) plus environment variables (prefix
// WKMP_, e.g. WKMP_DATABASE_DSN) into a Settings struct, applying defaults
// for anything left unset.
func Load(configPath string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WKMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if settings.Storage.LibraryRoot != "" {
		if abs, err := filepath.Abs(settings.Storage.LibraryRoot); err == nil {
			settings.Storage.LibraryRoot = abs
		}
	}

	settingsInstance = settings
	return settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "127.0.0.1")
	v.SetDefault("service.port", 5720)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.dsn", "wkmp.db")
	v.SetDefault("httpclient.useragent", "wkmp/1.0 (+https://github.com/mangocats/wkmp)")
	v.SetDefault("httpclient.totaltimeoutms", 15000)
	v.SetDefault("httpclient.connecttimeoutms", 5000)
	v.SetDefault("import.maxconcurrentfiles", 4)
	v.SetDefault("telemetry.enabled", false)
}

// Current returns the most recently Loaded settings, or nil before the
// first Load.
func Current() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
