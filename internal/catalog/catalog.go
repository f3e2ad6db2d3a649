package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/digital-products/internal/common"
)

const (
	DefaultVendor      = "Your Vendor"
	DefaultProductType = "Digital Product"
)

// Money is a price as Shopify expects it: a decimal string. It decodes from either a JSON
// string or a JSON number.
type Money string

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Money(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*m = Money(strconv.FormatFloat(f, 'f', 2, 64))
	return nil
}

func (m Money) String() string { return string(m) }

// Template is the per-folder catalog document shared by every product created in a run.
type Template struct {
	Description             string   `json:"Description"`
	Price                   Money    `json:"Price"`
	CompareToPrice          Money    `json:"CompareToPrice"`
	Collections             []string `json:"Collections"`
	SearchEngineDescription string   `json:"SearchEngineDescription"`
	Vendor                  string   `json:"Vendor,omitempty"`
	ProductType             string   `json:"ProductType,omitempty"`
	Tags                    []string `json:"Tags,omitempty"`
}

// Load reads and validates the catalog document at path. Any failure is a config error.
func Load(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ConfigError(fmt.Sprintf("read catalog %s", path), err)
	}
	return Parse(raw)
}

// Parse validates raw against the catalog schema and decodes it.
func Parse(raw []byte) (*Template, error) {
	if err := validate(raw); err != nil {
		return nil, common.ConfigError("invalid catalog document", err)
	}
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, common.ConfigError("decode catalog document", err)
	}
	if t.Vendor == "" {
		t.Vendor = DefaultVendor
	}
	if t.ProductType == "" {
		t.ProductType = DefaultProductType
	}
	return &t, nil
}

// AllTags merges collections and free tags, dropping blanks and repeats.
func (t *Template) AllTags() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{t.Collections, t.Tags} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

func validate(raw []byte) error {
	b, err := json.Marshal(templateSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("catalog does not match schema: %w", err)
	}
	return nil
}
