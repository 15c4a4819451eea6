package config

import (
	"errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Manifest == "" {
		return errors.New("paths.manifest must be set")
	}
	if c.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.BlenderPath == "" {
		return errors.New("render.blender_path must be set")
	}
	if c.NumWorkers < 1 {
		return errors.New("render.num_workers must be at least 1")
	}
	if c.TimeoutSeconds <= 0 {
		return errors.New("render.timeout_seconds must be greater than zero")
	}
	return nil
}
