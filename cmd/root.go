package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cv-matcher"
)

type Config struct {
	DataDir string        `mapstructure:"data-dir"`
	Server  *ServerConfig `mapstructure:"server"`
	AI      *AIConfig     `mapstructure:"ai"`
	Cache   *CacheConfig  `mapstructure:"cache"`
	Match   *MatchConfig  `mapstructure:"match"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	MaxUploadMB  int           `mapstructure:"max-upload-mb"`
	MatchTimeout time.Duration `mapstructure:"match-timeout"`
}

type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	OutputLanguage string        `mapstructure:"output-language"`
	Gemini         *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	APIKey       string `mapstructure:"api-key"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type MatchConfig struct {
	Dedupe          bool     `mapstructure:"dedupe"`
	DisabledFilters []string `mapstructure:"disabled-filters"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-matcher parses resumes and ranks candidates against job descriptions",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	viper.SetEnvPrefix("CVM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for jobs and parsed resumes")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func setDefaults() {
	viper.SetDefault("data-dir", "data")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.max-upload-mb", 16)
	viper.SetDefault("server.match-timeout", 10*time.Minute)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.output-language", "en")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 2000)
	viper.SetDefault("cache.redis-url", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)
	viper.SetDefault("match.dedupe", false)
	viper.SetDefault("match.disabled-filters", []string{})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional; defaults and environment cover every key.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
