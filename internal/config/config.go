package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Store          string `mapstructure:"store"`
	Output         string `mapstructure:"output"`
	Project        string `mapstructure:"project"`
	KeywordCache   int    `mapstructure:"keyword_cache"`
	ScanWorkers    int    `mapstructure:"scan_workers"`
	Color          string `mapstructure:"color"`
	HighlightStyle string `mapstructure:"highlight_style"`
	LogLevel       string `mapstructure:"log_level"`
}

// C is the global config instance
var C Config

// Init loads defaults, the optional mmdsync.yaml and MMDSYNC_* variables
func Init() error {
	viper.SetDefault("store", "~/.local/share/mmdsync")
	viper.SetDefault("output", "print")
	viper.SetDefault("project", "")
	viper.SetDefault("keyword_cache", 256)
	viper.SetDefault("scan_workers", 8)
	viper.SetDefault("color", "auto") // auto, always, never
	viper.SetDefault("highlight_style", "monokai")
	viper.SetDefault("log_level", "warn")

	viper.SetConfigName("mmdsync")
	viper.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "mmdsync"))
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("MMDSYNC")
	viper.AutomaticEnv()

	// a missing or malformed file leaves the defaults in place
	_ = viper.ReadInConfig()

	return viper.Unmarshal(&C)
}

// GetStore returns the document store directory with tilde expansion
func GetStore() string {
	return expandTilde(viper.GetString("store"))
}

// expandTilde expands a leading ~ to the user's home directory
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[1:])
	}
	return path
}

// GetOutput returns the output mode, print or copy
func GetOutput() string {
	return viper.GetString("output")
}

// GetProject returns the default project id for link
func GetProject() string {
	return viper.GetString("project")
}

// GetKeywordCache returns the keyword tracker capacity
func GetKeywordCache() int {
	if n := viper.GetInt("keyword_cache"); n > 0 {
		return n
	}
	return 256
}

// GetScanWorkers returns how many files a directory scan reads at once
func GetScanWorkers() int {
	if n := viper.GetInt("scan_workers"); n > 0 {
		return n
	}
	return 8
}

// GetColor returns the color mode: auto, always or never
func GetColor() string {
	switch c := strings.ToLower(viper.GetString("color")); c {
	case "always", "never":
		return c
	}
	return "auto"
}

// GetHighlightStyle returns the chroma style for frontmatter
func GetHighlightStyle() string {
	return viper.GetString("highlight_style")
}

// GetLogLevel returns the logrus level name
func GetLogLevel() string {
	return viper.GetString("log_level")
}

// SetOutput sets output mode at runtime
func SetOutput(mode string) {
	viper.Set("output", mode)
	C.Output = mode
}
