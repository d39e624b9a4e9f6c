package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, 120, c.TotalQuestions())
	assert.Len(t, c.DomainNames(), 12)

	for _, name := range c.DomainNames() {
		assert.Equal(t, 10, c.QuestionCount(name), "domain %s", name)
		assert.True(t, c.HasDomain(name))
		assert.NotEmpty(t, c.Specialist(name))
	}

	assert.Equal(t, "Strategy & Planning", c.DomainForQuestion("d01_q01"))
	assert.Equal(t, "Leadership", c.DomainForQuestion("d12_q10"))
	assert.Equal(t, "", c.DomainForQuestion("d13_q01"))
}

func TestDefaultPriorities(t *testing.T) {
	c := Default()

	got := c.DefaultPriorities()
	require.Len(t, got, MaxPriorityDomains)
	assert.Equal(t, c.DomainNames()[:MaxPriorityDomains], got)
}

func TestDomainIndexOrdersByDeclaration(t *testing.T) {
	c := Default()

	assert.Equal(t, 0, c.DomainIndex("Strategy & Planning"))
	assert.Equal(t, 11, c.DomainIndex("Leadership"))
	// unknown domains sort after every declared one
	assert.Equal(t, 12, c.DomainIndex("Astrology"))
}

func TestNewValidation(t *testing.T) {
	t.Run("rejects duplicate domain", func(t *testing.T) {
		_, err := New([]Domain{
			{Name: "Finance", Questions: []string{"f1"}},
			{Name: "Finance", Questions: []string{"f2"}},
		})
		assert.ErrorContains(t, err, "duplicate domain")
	})

	t.Run("rejects question in two domains", func(t *testing.T) {
		_, err := New([]Domain{
			{Name: "Finance", Questions: []string{"q1"}},
			{Name: "Sales", Questions: []string{"q1"}},
		})
		assert.ErrorContains(t, err, "q1")
	})

	t.Run("rejects empty catalog", func(t *testing.T) {
		_, err := New([]Domain{{Name: "Finance"}})
		assert.Error(t, err)
	})

	t.Run("rejects unnamed domain", func(t *testing.T) {
		_, err := New([]Domain{{Questions: []string{"q1"}}})
		assert.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	const doc = `
domains:
  - name: Finance
    specialist: CFO Advisor
    questions: [fin_01, fin_02]
  - name: Sales
    specialist: Sales Leader
    questions: [sal_01]
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, c.TotalQuestions())
	assert.Equal(t, []string{"Finance", "Sales"}, c.DomainNames())
	assert.Equal(t, "Finance", c.DomainForQuestion("fin_02"))
	assert.Equal(t, "CFO Advisor", c.Specialist("Finance"))
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domains: [not a domain"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
