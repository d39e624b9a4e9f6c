package bootstrap

import (
	"log"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
)

// LoadCatalog returns the questionnaire both binaries serve: the YAML file at
// path when a CATALOG_FILE override is set, otherwise the built-in catalog.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded question catalog from %s (%d questions)", path, c.TotalQuestions())
	return c, nil
}
