package common

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config contains all the configuration data for the app
type Config struct {
	AppName     string `mapstructure:"AppName" yaml:"AppName"`
	Version     string `mapstructure:"Version" yaml:"Version"`
	DebugOutput bool   `mapstructure:"DebugOutput" yaml:"DebugOutput"`
	Port        string `mapstructure:"Port" yaml:"Port"`

	// Capture session timings
	PrimaryTimeout      time.Duration `mapstructure:"PrimaryTimeout" yaml:"PrimaryTimeout"`
	SecondaryTimeout    time.Duration `mapstructure:"SecondaryTimeout" yaml:"SecondaryTimeout"`
	TimeoutCloseDelay   time.Duration `mapstructure:"TimeoutCloseDelay" yaml:"TimeoutCloseDelay"`
	DeviceDetectTimeout time.Duration `mapstructure:"DeviceDetectTimeout" yaml:"DeviceDetectTimeout"`
	AxisDetectTimeout   time.Duration `mapstructure:"AxisDetectTimeout" yaml:"AxisDetectTimeout"`
	BackendTimeout      time.Duration `mapstructure:"BackendTimeout" yaml:"BackendTimeout"`

	StoreFile        string `mapstructure:"StoreFile" yaml:"StoreFile"`
	AxisProfilesFile string `mapstructure:"AxisProfilesFile" yaml:"AxisProfilesFile"`
	ActionMapsFile   string `mapstructure:"ActionMapsFile" yaml:"ActionMapsFile"`
	CatalogFile      string `mapstructure:"CatalogFile" yaml:"CatalogFile"`
	WatchActionMaps  bool   `mapstructure:"WatchActionMaps" yaml:"WatchActionMaps"`
	HidrawDir        string `mapstructure:"HidrawDir" yaml:"HidrawDir"`
	EnableSDL        bool   `mapstructure:"EnableSDL" yaml:"EnableSDL"`
}

// DefaultConfigFile is where the server looks when no --config is given
const DefaultConfigFile = "config/config.yaml"

// flag name -> config key
var flagKeys = map[string]string{
	"debug": "DebugOutput",
	"port":  "Port",
	"sdl":   "EnableSDL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("AppName", "MetaBind")
	v.SetDefault("Version", "dev")
	v.SetDefault("Port", "8080")
	v.SetDefault("PrimaryTimeout", 10*time.Second)
	v.SetDefault("SecondaryTimeout", time.Second)
	v.SetDefault("TimeoutCloseDelay", 3*time.Second)
	v.SetDefault("DeviceDetectTimeout", 15*time.Second)
	v.SetDefault("AxisDetectTimeout", 10*time.Second)
	v.SetDefault("BackendTimeout", 10*time.Second)
	v.SetDefault("StoreFile", "config/devices.yaml")
	v.SetDefault("AxisProfilesFile", "config/axis_profiles.yaml")
	v.SetDefault("HidrawDir", "/sys/class/hidraw")
}

// LoadConfig reads filename (a missing file leaves the defaults in place),
// then applies METABIND_* environment variables, PORT and any flags that
// were set on the command line.
func LoadConfig(filename string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", filename, err)
		}
	}

	v.SetEnvPrefix("METABIND")
	v.AutomaticEnv()
	if err := v.BindEnv("Port", "METABIND_PORT", "PORT"); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", filename, err)
	}
	return &cfg, nil
}
