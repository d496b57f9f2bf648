package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("loadout_preview.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers default values for every config key. Callers that
// do not ship a config file can use the defaults directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("lang", "english")

	viper.SetDefault("repository.tf2", "https://tf2content.loadout.tf/")
	viper.SetDefault("repository.cs2", "https://cs2content.csloadout.com/")
	viper.SetDefault("repository.workshop", "https://workshop.tf/php/workshop/getAllItems.php")
	viper.SetDefault("repository.workshopUgc", "https://ugc.workshop.tf/")

	viper.SetDefault("api.classInfoUrl", "https://api.loadout.tf/getassetclassinfo")
	viper.SetDefault("api.inspectTf2Url", "https://api.loadout.tf/inspecttf2weapon")
	viper.SetDefault("api.inspectCs2Url", "https://api.loadout.tf/inspectcs2weapon")
	viper.SetDefault("api.timeoutSeconds", 30)

	viper.SetDefault("resolver.hoverDelayMs", 200)
	viper.SetDefault("resolver.textureSize", 2048)

	viper.SetDefault("store.path", "./loadout_preview.db")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "loadout_preview")
	viper.SetDefault("otel.exportIntervalSeconds", 60)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// HoverDelay returns the debounce delay applied before resolving a
// hovered listing.
func HoverDelay() time.Duration {
	return time.Duration(viper.GetInt("resolver.hoverDelayMs")) * time.Millisecond
}

// APITimeout returns the timeout applied to upstream API requests.
func APITimeout() time.Duration {
	return time.Duration(viper.GetInt("api.timeoutSeconds")) * time.Second
}

// TextureSize returns the warpaint compositing resolution.
func TextureSize() int {
	return viper.GetInt("resolver.textureSize")
}
