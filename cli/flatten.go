package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doctransfer/signcore/config"
	"github.com/doctransfer/signcore/export"
	"github.com/doctransfer/signcore/field"
	"github.com/doctransfer/signcore/fonts"
)

// placement is the JSON wire form of one placed field and its value.
type placement struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Value carries the signer's input: text for textual fields, a
	// 2006-01-02 date for date fields, a stamp kind for stamp fields, and
	// an image file path for signature and initials fields.
	Value   string `json:"value,omitempty"`
	Checked bool   `json:"checked,omitempty"`
}

func FlattenCommand() {
	flattenFlags := flag.NewFlagSet("flatten", flag.ExitOnError)

	var configPath string
	var fieldsPath string
	var fontPath string
	var documentID string
	var skipCertificate bool

	flattenFlags.StringVar(&configPath, "config", "", "Path to a TOML config file (defaults apply when omitted)")
	flattenFlags.StringVar(&fieldsPath, "fields", "", "Path to a JSON file of placed fields and their values")
	flattenFlags.StringVar(&fontPath, "font", "", "Path to a TrueType font embedded for text values (defaults to Helvetica)")
	flattenFlags.StringVar(&documentID, "doc", "", "Document ID printed on the certificate page")
	flattenFlags.BoolVar(&skipCertificate, "skip-certificate", false, "Do not append the certificate of completion page")

	flattenFlags.Usage = func() {
		fmt.Printf("Usage: %s flatten [options] <input.pdf> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Flatten field values into a PDF as an incremental update")
		fmt.Println("\nOptions:")
		flattenFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s flatten -fields fields.json document.pdf signed.pdf\n", os.Args[0])
		fmt.Printf("  %s flatten -fields fields.json -skip-certificate document.pdf signed.pdf\n", os.Args[0])
	}

	if err := flattenFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse flatten flags: %v", err)
		osExit(1)
	}

	if len(flattenFlags.Args()) < 2 {
		flattenFlags.Usage()
		osExit(1)
		return
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Read(configPath)
		if err != nil {
			log.Println(err)
			osExit(1)
			return
		}
	}

	var fields []*field.Field
	values := field.Values{}
	if fieldsPath != "" {
		var err error
		fields, values, err = LoadPlacements(fieldsPath)
		if err != nil {
			log.Println(err)
			osExit(1)
			return
		}
	}

	var textFont *fonts.Font
	if fontPath != "" {
		var err error
		textFont, err = LoadFont(fontPath)
		if err != nil {
			log.Println(err)
			osExit(1)
			return
		}
	}

	err := export.FlattenFile(context.Background(), flattenFlags.Arg(0), flattenFlags.Arg(1), export.Request{
		DocumentID:      documentID,
		Fields:          fields,
		Values:          values,
		Font:            textFont,
		SkipCertificate: skipCertificate,
		Config:          cfg,
	})
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	fmt.Printf("Flattened %d fields into %s\n", len(fields), flattenFlags.Arg(1))
}

// LoadFont reads a TrueType file and prepares it for embedding, naming the
// font after the file.
func LoadFont(path string) (*fonts.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fonts.Embed(name, data)
}

// LoadPlacements reads a JSON placement file into fields and their values.
func LoadPlacements(path string) ([]*field.Field, field.Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var placements []placement
	if err := json.Unmarshal(data, &placements); err != nil {
		return nil, nil, fmt.Errorf("failed to parse placements: %w", err)
	}

	fields := make([]*field.Field, 0, len(placements))
	values := field.Values{}

	for i, p := range placements {
		t, err := field.ParseType(p.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("placement %d: %w", i, err)
		}

		f := field.New(t, p.X, p.Y)
		if p.Width > 0 {
			f.Width = p.Width
		}
		if p.Height > 0 {
			f.Height = p.Height
		}

		v, err := placementValue(t, p)
		if err != nil {
			return nil, nil, fmt.Errorf("placement %d: %w", i, err)
		}
		if t == field.Stamp {
			f.StampKind = p.Value
		}

		fields = append(fields, &f)
		values[f.ID] = v
	}

	return fields, values, nil
}

func placementValue(t field.Type, p placement) (field.Value, error) {
	switch {
	case t.IsImage():
		img, err := os.ReadFile(p.Value)
		if err != nil {
			return field.Value{}, fmt.Errorf("failed to read image: %w", err)
		}
		return field.ImageValue(img), nil

	case t == field.Date:
		d, err := time.Parse("2006-01-02", p.Value)
		if err != nil {
			return field.Value{}, fmt.Errorf("invalid date %q: %w", p.Value, err)
		}
		return field.DateValue(d), nil

	case t == field.Checkbox:
		return field.CheckedValue(p.Checked), nil

	case t == field.Stamp:
		return field.StampAppliedValue(), nil
	}

	return field.TextValue(p.Value), nil
}
