package app

import (
	"errors"
	"flag"
)

type Config struct {
	ExportFile  string
	ListMetrics bool
}

func NewConfig() *Config {
	return &Config{}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	flag.StringVar(&c.ExportFile, "f", "", "Path to the export file to check")
	flag.BoolVar(&c.ListMetrics, "metrics", false, "List every populated metric with its sample count")
	flag.Parse()

	if c.ExportFile == "" {
		flag.Usage()
		return nil, errors.New("export file is required")
	}

	return c, nil
}
