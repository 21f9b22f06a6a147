/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"github.com/acronis/go-mlbroker/config"
)

const cfgDefaultKeyPrefix = "log"

const (
	cfgKeyLevel              = "level"
	cfgKeyFormat             = "format"
	cfgKeyOutput             = "output"
	cfgKeyNoColor            = "nocolor"
	cfgKeyAddCaller          = "addCaller"
	cfgKeyErrorNoVerbose     = "error.noVerbose"
	cfgKeyErrorVerboseSuffix = "error.verboseSuffix"
	cfgKeyFilePath           = "file.path"
	cfgKeyRotationCompress   = "file.rotation.compress"
	cfgKeyRotationMaxSize    = "file.rotation.maxSize"
	cfgKeyRotationMaxBackups = "file.rotation.maxBackups"
	cfgKeyRotationMaxAgeDays = "file.rotation.maxAgeDays"
	cfgKeyRotationLocalTime  = "file.rotation.localTimeInNames"
)

// Default and restriction values.
const (
	// DefaultFilePath may contain {{starttime}} and {{pid}} placeholders.
	DefaultFilePath = "mlbroker.log"

	DefaultFileRotationMaxSizeBytes config.ByteSize = 250 << 20
	MinFileRotationMaxSizeBytes     config.ByteSize = 1 << 20

	DefaultFileRotationMaxBackups = 10
	MinFileRotationMaxBackups     = 1

	DefaultErrorVerboseSuffix = "_verbose"
)

// Format is a format of log entries.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output is a destination of log entries.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config is a logging configuration.
type Config struct {
	Level     Level
	Format    Format
	Output    Output
	NoColor   bool
	AddCaller bool // adds package/file:line of the caller to each entry
	File      FileOutputConfig
	Error     ErrorConfig

	keyPrefix string
}

// FileOutputConfig configures the "file" output.
type FileOutputConfig struct {
	Path     string
	Rotation FileRotationConfig
}

// FileRotationConfig configures log file rotation.
type FileRotationConfig struct {
	MaxSize          config.ByteSize
	MaxBackups       int
	MaxAgeDays       int // 0 keeps old files regardless of age
	Compress         bool
	LocalTimeInNames bool
}

// ErrorConfig configures how errors are encoded.
// Unless NoVerbose is set, an error implementing fmt.Formatter gets
// a separate "error"+VerboseSuffix field with its "%+v" representation.
type ErrorConfig struct {
	NoVerbose     bool
	VerboseSuffix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the given key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a Config filled with default values.
func NewDefaultConfig() *Config {
	cfg := NewConfig()
	cfg.Level = LevelInfo
	cfg.Format = FormatJSON
	cfg.Output = OutputStdout
	cfg.File.Path = DefaultFilePath
	cfg.File.Rotation.MaxSize = DefaultFileRotationMaxSizeBytes
	cfg.File.Rotation.MaxBackups = DefaultFileRotationMaxBackups
	cfg.Error.VerboseSuffix = DefaultErrorVerboseSuffix
	return cfg
}

// KeyPrefix returns the key prefix of logging parameters.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyLevel, string(def.Level))
	dp.SetDefault(cfgKeyFormat, string(def.Format))
	dp.SetDefault(cfgKeyOutput, string(def.Output))
	dp.SetDefault(cfgKeyFilePath, def.File.Path)
	dp.SetDefault(cfgKeyRotationMaxSize, def.File.Rotation.MaxSize.String())
	dp.SetDefault(cfgKeyRotationMaxBackups, def.File.Rotation.MaxBackups)
	dp.SetDefault(cfgKeyErrorVerboseSuffix, def.Error.VerboseSuffix)
}

// Set sets logging configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := getEnum(dp, cfgKeyLevel, LevelError, LevelWarn, LevelInfo, LevelDebug)
	if err != nil {
		return err
	}
	format, err := getEnum(dp, cfgKeyFormat, FormatJSON, FormatText)
	if err != nil {
		return err
	}
	output, err := getEnum(dp, cfgKeyOutput, OutputStdout, OutputStderr, OutputFile)
	if err != nil {
		return err
	}
	c.Level, c.Format, c.Output = level, format, output

	for key, dst := range map[string]*bool{
		cfgKeyNoColor:           &c.NoColor,
		cfgKeyAddCaller:         &c.AddCaller,
		cfgKeyErrorNoVerbose:    &c.Error.NoVerbose,
		cfgKeyRotationCompress:  &c.File.Rotation.Compress,
		cfgKeyRotationLocalTime: &c.File.Rotation.LocalTimeInNames,
	} {
		if *dst, err = dp.GetBool(key); err != nil {
			return err
		}
	}

	if c.Error.VerboseSuffix, err = dp.GetString(cfgKeyErrorVerboseSuffix); err != nil {
		return err
	}
	return c.setFile(dp)
}

func (c *Config) setFile(dp config.DataProvider) (err error) {
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.Output == OutputFile && c.File.Path == "" {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}

	rotation := &c.File.Rotation
	if rotation.MaxSize, err = dp.GetByteSize(cfgKeyRotationMaxSize); err != nil {
		return err
	}
	if rotation.MaxSize < MinFileRotationMaxSizeBytes {
		return dp.WrapKeyErr(cfgKeyRotationMaxSize, fmt.Errorf("should be >= %s", MinFileRotationMaxSizeBytes))
	}
	if rotation.MaxBackups, err = dp.GetInt(cfgKeyRotationMaxBackups); err != nil {
		return err
	}
	if rotation.MaxBackups < MinFileRotationMaxBackups {
		return dp.WrapKeyErr(cfgKeyRotationMaxBackups, fmt.Errorf("should be >= %d", MinFileRotationMaxBackups))
	}
	if rotation.MaxAgeDays, err = dp.GetInt(cfgKeyRotationMaxAgeDays); err != nil {
		return err
	}
	if rotation.MaxAgeDays < 0 {
		return dp.WrapKeyErr(cfgKeyRotationMaxAgeDays, fmt.Errorf("should be >= 0"))
	}
	return nil
}

// getEnum reads a case-insensitive value that must be one of allowed.
func getEnum[T ~string](dp config.DataProvider, key string, allowed ...T) (T, error) {
	set := make([]string, len(allowed))
	for i := range allowed {
		set[i] = string(allowed[i])
	}
	s, err := dp.GetStringFromSet(key, set, true)
	if err != nil {
		return "", err
	}
	return T(strings.ToLower(s)), nil
}
