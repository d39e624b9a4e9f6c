package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogDefault(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, 120, c.TotalQuestions())
}

func TestLoadCatalogOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`domains:
  - name: Finance
    specialist: Financial Strategist
    questions: [fin_01, fin_02]
  - name: Sales
    specialist: Sales Coach
    questions: [sal_01]
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalQuestions())
	assert.Equal(t, []string{"Finance", "Sales"}, c.DomainNames())
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
