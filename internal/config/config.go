// Package config loads the operator configuration for datasubjects.
//
// Configuration comes from a YAML file; command-line flags override
// individual fields afterwards. Example:
//
//	driver: mysql
//	dsn: "matomo:secret@tcp(db:3306)/matomo"
//	table_prefix: matomo_
//	catalog_dir: ./catalog
//	workers: 8
//	anchors:
//	  visit: {table: log_visit, id_column: idvisit}
//	  action_link: {table: log_link_visit_action, id_column: idaction_url}
//	  action_name: log_action
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/subject"
)

// Config holds everything needed to build a subject.Service.
type Config struct {
	Driver      string         `yaml:"driver"`
	DSN         string         `yaml:"dsn"`
	TablePrefix string         `yaml:"table_prefix"`
	CatalogDir  string         `yaml:"catalog_dir"`
	Workers     int            `yaml:"workers"`
	Anchors     schema.Anchors `yaml:"anchors"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Driver:     string(querysql.SQLite),
		CatalogDir: "catalog",
		Workers:    subject.DefaultWorkers,
		Anchors:    schema.DefaultAnchors(),
	}
}

// Load reads the YAML file at path over Default(). Unknown fields are
// rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default().
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := querysql.ParseDialect(c.Driver); err != nil {
		return err
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if c.TablePrefix != "" {
		if err := schema.ValidIdentifier(c.TablePrefix); err != nil {
			return fmt.Errorf("table_prefix: %w", err)
		}
	}
	if c.CatalogDir == "" {
		return errors.New("catalog_dir is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return c.Anchors.Validate()
}
