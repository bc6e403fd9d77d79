// Package config layers csvpermute settings: command line flags override
// CSVPERMUTE_* environment variables, which override a YAML config file,
// which overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CSVPERMUTE_DELIMITER.
const EnvPrefix = "CSVPERMUTE"

// Setting keys. They double as flag names.
const (
	Delimiter      = "delimiter"
	QuoteChar      = "quotechar"
	ExcludeColumns = "exclude_columns"
	PermuteRows    = "permute_rows"
	Encoding       = "encoding"
	Seed           = "seed"
	NoHeader       = "no_header"
	SkipRagged     = "skip_ragged"
	CRLF           = "crlf"
	QuoteAll       = "quote_all"
	LogLevel       = "log_level"
	SeqURL         = "seq_url"
)

// Config is the resolved set of settings for one run.
type Config struct {
	Delimiter      string
	QuoteChar      string
	ExcludeColumns string
	PermuteRows    bool
	Encoding       string
	// Seed is meaningful only when SeedSet is true.
	Seed       uint64
	SeedSet    bool
	NoHeader   bool
	SkipRagged bool
	CRLF       bool
	QuoteAll   bool
	LogLevel   string
	SeqURL     string
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(Delimiter, ",")
	v.SetDefault(QuoteChar, `"`)
	v.SetDefault(ExcludeColumns, "")
	v.SetDefault(PermuteRows, false)
	v.SetDefault(Encoding, "utf-8")
	v.SetDefault(NoHeader, false)
	v.SetDefault(SkipRagged, false)
	v.SetDefault(CRLF, false)
	v.SetDefault(QuoteAll, false)
	v.SetDefault(LogLevel, "info")
	v.SetDefault(SeqURL, "")
}

// Init wires defaults, environment and flags into v and reads the config
// file. With an explicit configFile a read failure is an error; otherwise
// $HOME/.csvpermute.yaml is read if it exists.
func Init(v *viper.Viper, flags *pflag.FlagSet, configFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetConfigType("yaml")
	v.SetConfigName(".csvpermute")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// Load reads the resolved settings out of v.
func Load(v *viper.Viper) Config {
	return Config{
		Delimiter:      v.GetString(Delimiter),
		QuoteChar:      v.GetString(QuoteChar),
		ExcludeColumns: v.GetString(ExcludeColumns),
		PermuteRows:    v.GetBool(PermuteRows),
		Encoding:       v.GetString(Encoding),
		Seed:           v.GetUint64(Seed),
		SeedSet:        v.IsSet(Seed),
		NoHeader:       v.GetBool(NoHeader),
		SkipRagged:     v.GetBool(SkipRagged),
		CRLF:           v.GetBool(CRLF),
		QuoteAll:       v.GetBool(QuoteAll),
		LogLevel:       v.GetString(LogLevel),
		SeqURL:         v.GetString(SeqURL),
	}
}
