package responder

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	minTemplates = 2
	maxTemplates = 5
)

// Source is the random capability the selector draws from. *rand.Rand
// satisfies it.
type Source interface {
	Intn(n int) int
}

// Catalog holds the canned replies of every category.
type Catalog map[Category][]string

// LoadCatalog parses a YAML catalog and checks that every category has a
// usable number of templates.
func LoadCatalog(raw []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, category := range Categories() {
		n := len(catalog[category])
		if n < minTemplates || n > maxTemplates {
			return nil, fmt.Errorf("category %q has %d templates, want %d-%d", category, n, minTemplates, maxTemplates)
		}
	}
	return catalog, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	catalog, err := LoadCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return catalog
}

type Reply struct {
	Category Category `json:"category"`
	Text     string   `json:"response"`
}

// Responder picks canned replies. It is safe for concurrent use.
type Responder struct {
	catalog Catalog
	mu      sync.Mutex
	rnd     Source
}

func New(catalog Catalog, rnd Source) *Responder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Responder{catalog: catalog, rnd: rnd}
}

// Select returns one template of the category, uniformly at random. Unknown
// categories answer from the default set.
func (r *Responder) Select(category Category) string {
	templates, ok := r.catalog[category]
	if !ok || len(templates) == 0 {
		templates = r.catalog[Default]
	}
	r.mu.Lock()
	idx := r.rnd.Intn(len(templates))
	r.mu.Unlock()
	return templates[idx]
}

// Templates returns a copy of the category's templates.
func (r *Responder) Templates(category Category) []string {
	return append([]string(nil), r.catalog[category]...)
}

// Reply classifies text and selects a reply for it.
func (r *Responder) Reply(text string) (Reply, error) {
	category, err := Classify(text)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Category: category, Text: r.Select(category)}, nil
}
