package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// CatalogAPIVersion is the only accepted catalog document version.
const CatalogAPIVersion = "catalog/v0"

// CatalogFile is the on-disk catalog document.
type CatalogFile struct {
	APIVersion string          `yaml:"apiVersion"           json:"apiVersion"           jsonschema:"required,enum=catalog/v0"`
	Gate       *Gate           `yaml:"gate,omitempty"       json:"gate,omitempty"`
	Redactions []RedactionRule `yaml:"redactions,omitempty" json:"redactions,omitempty"`
	Probes     []Probe         `yaml:"probes"               json:"probes"               jsonschema:"required,minItems=1"`
}

// ValidationError is a single catalog problem with its document location.
type ValidationError struct {
	Phase   string `json:"phase"` // structural, semantic, domain
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// LoadCatalogFile reads, validates and builds a catalog from a YAML file.
// The returned redactor carries the file's rules appended to the defaults.
func LoadCatalogFile(path string) (*Catalog, *Redactor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes a catalog document strictly, validates it against the
// catalog JSON Schema and builds the Catalog.
func LoadCatalog(r io.Reader) (*Catalog, *Redactor, error) {
	var doc CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, &ValidationError{Phase: "structural", Message: err.Error()}
	}
	if errs := ValidateCatalog(&doc); len(errs) > 0 {
		return nil, nil, errs[0]
	}

	gate := doc.Gate
	if gate == nil {
		gate = DefaultGate()
	}
	cat, err := NewCatalog(doc.Probes, gate)
	if err != nil {
		return nil, nil, &ValidationError{Phase: "domain", Path: "probes", Message: err.Error()}
	}
	red, err := NewRedactor(append(append([]RedactionRule(nil), DefaultRedactionRules...), doc.Redactions...))
	if err != nil {
		return nil, nil, &ValidationError{Phase: "domain", Path: "redactions", Message: err.Error()}
	}
	return cat, red, nil
}

// GenerateCatalogSchema produces the JSON Schema for catalog documents.
func GenerateCatalogSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&CatalogFile{})
	s.ID = "https://github.com/jjgarcianorway/anna-assistant-sub000/schemas/catalog-v0.json"
	s.Title = "Anna probe catalog v0"
	s.Description = "Read-only probe whitelist for the answer engine"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal catalog schema: %w", err)
	}
	return data, nil
}

// ValidateCatalog checks a decoded catalog document against the schema.
func ValidateCatalog(doc *CatalogFile) []*ValidationError {
	semantic := func(msg string, args ...any) []*ValidationError {
		return []*ValidationError{{Phase: "semantic", Message: fmt.Sprintf(msg, args...)}}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return semantic("marshal for schema validation: %v", err)
	}
	schemaJSON, err := GenerateCatalogSchema()
	if err != nil {
		return semantic("generate schema: %v", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return semantic("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("catalog-v0.json", schemaDoc); err != nil {
		return semantic("add schema resource: %v", err)
	}
	sch, err := c.Compile("catalog-v0.json")
	if err != nil {
		return semantic("compile schema: %v", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return semantic("unmarshal document: %v", err)
	}
	if err := sch.Validate(instance); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return semantic("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flatten(ve) {
			errs = append(errs, &ValidationError{
				Phase:   "semantic",
				Path:    strings.Join(cause.InstanceLocation, "/"),
				Message: fmt.Sprintf("%v", cause.ErrorKind),
			})
		}
		return errs
	}
	return nil
}

func flatten(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}
