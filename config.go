package main

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lectern/catalog"
)

type cfgMain struct {
	// Listen is the local address the API binds to.
	Listen  string
	Dbfile  string
	Logfile string
	// MediaExtensions are the recognized media file extensions.
	MediaExtensions []string `mapstructure:"media_extensions"`
	Probe           cfgProbe
}

type cfgProbe struct {
	FfprobePath string `mapstructure:"ffprobe_path"`
	FfmpegPath  string `mapstructure:"ffmpeg_path"`
	// TimeoutSeconds caps one metadata probe.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// Concurrency bounds probes in flight per section.
	Concurrency     int
	PreviewMaxWidth int `mapstructure:"preview_max_width"`
}

// loadConfig merges defaults, the optional lectern.yaml config file and
// command line flags.
func loadConfig() (*cfgMain, error) {
	pflag.String("config", "", "Path of config file")
	pflag.String("listen", "127.0.0.1:8037", "Address to listen on")
	pflag.String("dbfile", "lectern.db", "Path of sqlite database")
	pflag.String("logfile", "", "Path of logfile. Use 'stdout' for standard output, or 'none' to disable logging.")
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	viper.SetDefault("media_extensions", catalog.DefaultMediaExtensions)
	viper.SetDefault("probe.ffprobe_path", "ffprobe")
	viper.SetDefault("probe.ffmpeg_path", "ffmpeg")
	viper.SetDefault("probe.timeout_seconds", 8)
	viper.SetDefault("probe.concurrency", 2)
	viper.SetDefault("probe.preview_max_width", 320)

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("lectern")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		// config file is optional, flags and defaults suffice
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var config cfgMain
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &config, nil
}
