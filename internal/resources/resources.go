package resources

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed resources.yaml
var builtin []byte

type Contact struct {
	Icon string `yaml:"icon" json:"icon"`
	Text string `yaml:"text" json:"text"`
	Tel  string `yaml:"tel" json:"tel,omitempty"`
	Desc string `yaml:"desc" json:"desc"`
}

type Link struct {
	URL  string `yaml:"url" json:"url"`
	Text string `yaml:"text" json:"text"`
}

type Country struct {
	Code      string    `yaml:"-" json:"code"`
	Name      string    `yaml:"name" json:"name"`
	Crisis    []Contact `yaml:"crisis" json:"crisis"`
	Therapist Link      `yaml:"therapist" json:"therapist"`
	Resources Link      `yaml:"resources" json:"resources"`
}

// Directory looks up crisis resources by ISO country code.
type Directory struct {
	countries map[string]Country
	fallback  string
}

// Load parses a resources document. fallback is the code answered for
// unknown countries and must be present.
func Load(raw []byte, fallback string) (*Directory, error) {
	countries := map[string]Country{}
	if err := yaml.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("parse resources: %w", err)
	}
	for code, c := range countries {
		c.Code = code
		countries[code] = c
	}
	fallback = strings.ToUpper(fallback)
	if _, ok := countries[fallback]; !ok {
		return nil, fmt.Errorf("fallback country %q not in resources", fallback)
	}
	return &Directory{countries: countries, fallback: fallback}, nil
}

// Builtin returns the embedded directory.
func Builtin(fallback string) (*Directory, error) {
	return Load(builtin, fallback)
}

// Lookup returns the country's resources, or the fallback country's when
// the code is unknown. The bool reports whether the code itself matched.
func (d *Directory) Lookup(code string) (Country, bool) {
	if c, ok := d.countries[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c, true
	}
	return d.countries[d.fallback], false
}

func (d *Directory) List() []Country {
	out := make([]Country, 0, len(d.countries))
	for _, c := range d.countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
