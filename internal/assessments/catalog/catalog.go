// Package catalog holds the questionnaire reference data: which domains
// exist, which questions belong to each, and how domains map to inference
// specialist personas. The catalog is immutable after construction and is
// injected wherever lookup is needed so tests can substitute their own.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Domain is one operational category of the questionnaire.
type Domain struct {
	Name       string   `yaml:"name"`
	Specialist string   `yaml:"specialist"`
	Questions  []string `yaml:"questions"`
}

// Catalog is the full questionnaire definition.
type Catalog struct {
	domains   []Domain
	byName    map[string]int
	questions map[string]string // question id -> domain name
	total     int
}

// MaxPriorityDomains bounds how many domains receive deep analysis.
const MaxPriorityDomains = 5

// New builds a catalog from an ordered domain list. Declaration order is
// significant: it breaks triage ties and seeds the default priority list.
func New(domains []Domain) (*Catalog, error) {
	c := &Catalog{
		domains:   domains,
		byName:    make(map[string]int, len(domains)),
		questions: make(map[string]string),
	}
	for i, d := range domains {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog: domain %d has no name", i)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate domain %q", d.Name)
		}
		c.byName[d.Name] = i
		for _, q := range d.Questions {
			if prev, dup := c.questions[q]; dup {
				return nil, fmt.Errorf("catalog: question %q in both %q and %q", q, prev, d.Name)
			}
			c.questions[q] = d.Name
			c.total++
		}
	}
	if c.total == 0 {
		return nil, fmt.Errorf("catalog: no questions")
	}
	return c, nil
}

// LoadFile reads a YAML catalog override.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var doc struct {
		Domains []Domain `yaml:"domains"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(doc.Domains)
}

// TotalQuestions is the number of questions across all domains.
func (c *Catalog) TotalQuestions() int { return c.total }

// DomainNames returns domain names in declaration order.
func (c *Catalog) DomainNames() []string {
	out := make([]string, len(c.domains))
	for i, d := range c.domains {
		out[i] = d.Name
	}
	return out
}

// DomainForQuestion resolves a question id to its domain, or "" if unknown.
func (c *Catalog) DomainForQuestion(questionID string) string {
	return c.questions[questionID]
}

// QuestionCount returns how many questions a domain has.
func (c *Catalog) QuestionCount(domainName string) int {
	i, ok := c.byName[domainName]
	if !ok {
		return 0
	}
	return len(c.domains[i].Questions)
}

// DomainIndex returns a domain's declaration position, used as the triage
// tiebreak. Unknown domains sort last.
func (c *Catalog) DomainIndex(domainName string) int {
	if i, ok := c.byName[domainName]; ok {
		return i
	}
	return len(c.domains)
}

// HasDomain reports whether the domain is declared.
func (c *Catalog) HasDomain(domainName string) bool {
	_, ok := c.byName[domainName]
	return ok
}

// Specialist returns the inference persona for a domain.
func (c *Catalog) Specialist(domainName string) string {
	if i, ok := c.byName[domainName]; ok {
		return c.domains[i].Specialist
	}
	return "Business Operations Consultant"
}

// DefaultPriorities is the fixed fallback priority list used when triage
// fails: the first MaxPriorityDomains domains in declaration order.
func (c *Catalog) DefaultPriorities() []string {
	names := c.DomainNames()
	if len(names) > MaxPriorityDomains {
		names = names[:MaxPriorityDomains]
	}
	return names
}

// Default returns the built-in 12-domain, 120-question catalog.
func Default() *Catalog {
	specs := []struct {
		name       string
		specialist string
	}{
		{"Strategy & Planning", "Strategy Consultant"},
		{"Finance", "CFO Advisor"},
		{"Operations", "Operations Director"},
		{"Sales", "Sales Leader"},
		{"Marketing", "Marketing Strategist"},
		{"Customer Service", "Customer Experience Lead"},
		{"Human Resources", "People Operations Advisor"},
		{"Technology", "CTO Advisor"},
		{"Product", "Product Management Coach"},
		{"Supply Chain", "Supply Chain Analyst"},
		{"Legal & Compliance", "Compliance Counsel"},
		{"Leadership", "Executive Coach"},
	}

	domains := make([]Domain, 0, len(specs))
	for i, s := range specs {
		qs := make([]string, 0, 10)
		for n := 1; n <= 10; n++ {
			qs = append(qs, fmt.Sprintf("d%02d_q%02d", i+1, n))
		}
		domains = append(domains, Domain{Name: s.name, Specialist: s.specialist, Questions: qs})
	}

	c, err := New(domains)
	if err != nil {
		// The built-in data is static; a construction failure is a bug.
		panic(err)
	}
	return c
}
