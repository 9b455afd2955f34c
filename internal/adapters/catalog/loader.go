package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// document is the on-disk catalog layout.
type document struct {
	Products []domain.Product                `yaml:"products"`
	Symptoms []domain.TroubleshootingSymptom `yaml:"symptoms"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Memory, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog. Unknown fields are rejected so typos in a
// hand-edited file surface at startup.
func Load(r io.Reader) (*Memory, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode catalog: empty document")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Products) == 0 {
		return nil, fmt.Errorf("decode catalog: no products")
	}
	return New(doc.Products, doc.Symptoms)
}

// Open returns the catalog at path, or the embedded one when path is empty.
func Open(path string) (*Memory, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
