// Package config carries the layout constants shared between the placement
// editor and the export engine. Both stages must agree on the render width and
// inter-page margin or every page-boundary computation drifts, so the values
// live here once instead of as literals at the call sites.
package config

import (
	"compress/zlib"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
)

// DefaultLocation is the default location of the config file.
var DefaultLocation = "./signcore.conf"

// Config is the root of the config.
type Config struct {
	// RenderWidth is the width, in visual units, at which every page is
	// rendered on screen. PDF user-space coordinates are derived from it.
	RenderWidth float64 `toml:"render_width" valid:"required,range(1|10000)"`

	// PageMargin is the vertical gap, in visual units, between consecutive
	// rendered pages. Points inside the gap belong to no page.
	PageMargin float64 `toml:"page_margin" valid:"range(0|1000),optional"`

	// GridSize is the snapping grid for field placement.
	GridSize float64 `toml:"grid_size" valid:"required,range(1|1000)"`

	// MinFieldSize is the smallest width or height a field may be resized to.
	MinFieldSize float64 `toml:"min_field_size" valid:"required,range(1|1000)"`

	// DownloadName is the file name offered for the flattened document.
	DownloadName string `toml:"download_name" valid:"required"`

	// CompressLevel is the zlib level for streams added during export.
	CompressLevel int `toml:"compress_level" valid:"range(-2|9),optional"`
}

// Default returns the configuration the hosted product ships with.
func Default() Config {
	return Config{
		RenderWidth:   800,
		PageMargin:    32,
		GridSize:      20,
		MinFieldSize:  30,
		DownloadName:  "signed-document.pdf",
		CompressLevel: zlib.DefaultCompression,
	}
}

// ValidateFields validates all the fields of the config.
func (c Config) ValidateFields() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return err
	}
	return nil
}

// Read loads a config file from disk, applying defaults for absent keys.
func Read(configfile string) (Config, error) {
	if _, err := os.Stat(configfile); err != nil {
		return Config{}, fmt.Errorf("config file is missing: %s", configfile)
	}

	c := Default()
	if _, err := toml.DecodeFile(configfile, &c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := c.ValidateFields(); err != nil {
		return Config{}, fmt.Errorf("config is not valid: %w", err)
	}

	return c, nil
}
