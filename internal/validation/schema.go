package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

var (
	catalogSchema   *jsonschema.Schema
	levelSchema     *jsonschema.Schema
	placementSchema *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	addResource(compiler, schemas.LevelSchemaJSON, "level.schema.json")
	addResource(compiler, schemas.CatalogSchemaJSON, "catalog.schema.json")
	addResource(compiler, schemas.PlacementSchemaJSON, "placement.schema.json")

	catalogSchema = mustCompile(compiler, "catalog.schema.json")
	levelSchema = mustCompile(compiler, "level.schema.json")
	placementSchema = mustCompile(compiler, "placement.schema.json")
}

func addResource(compiler *jsonschema.Compiler, raw, name string) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
}

func mustCompile(compiler *jsonschema.Compiler, name string) *jsonschema.Schema {
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Kind is the type of document a file holds.
type Kind string

const (
	KindCatalog   Kind = "catalog"
	KindLevel     Kind = "level"
	KindPlacement Kind = "placement"
)

// Report is the outcome of checking one file.
type Report struct {
	Path           string   `json:"path"`
	Kind           Kind     `json:"kind"`
	SchemaErrors   []string `json:"schema_errors,omitempty"`
	SemanticErrors []string `json:"semantic_errors,omitempty"`
}

// OK reports whether the file passed every check.
func (r *Report) OK() bool {
	return len(r.SchemaErrors) == 0 && len(r.SemanticErrors) == 0
}

// ValidateCatalogBytes validates raw YAML bytes against the catalog schema.
func ValidateCatalogBytes(data []byte) []string {
	return validateYAMLBytes(catalogSchema, data)
}

// ValidateLevelBytes validates raw YAML bytes against the level schema.
func ValidateLevelBytes(data []byte) []string {
	return validateYAMLBytes(levelSchema, data)
}

// ValidatePlacementBytes validates raw YAML bytes against the placement schema.
func ValidatePlacementBytes(data []byte) []string {
	return validateYAMLBytes(placementSchema, data)
}

// DetectKind guesses the document type from its top-level keys.
func DetectKind(data []byte) (Kind, error) {
	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return "", fmt.Errorf("YAML parse error: %w", err)
	}
	switch {
	case top["components"] != nil || top["combos"] != nil || top["levels"] != nil:
		return KindCatalog, nil
	case top["scenarios"] != nil || top["success_criteria"] != nil:
		return KindLevel, nil
	default:
		return KindPlacement, nil
	}
}

// ValidateFile checks a catalog, level or placement file against its schema
// and, when the schema passes, against the semantic rules the schema cannot
// express. Placements are resolved against cat.
func ValidateFile(path string, cat *catalog.Catalog) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r := ValidateBytes(data, cat)
	r.Path = path
	return r, nil
}

// ValidateBytes is ValidateFile for an in-memory document.
func ValidateBytes(data []byte, cat *catalog.Catalog) *Report {
	kind, err := DetectKind(data)
	if err != nil {
		return &Report{SchemaErrors: []string{err.Error()}}
	}

	r := &Report{Kind: kind}
	switch kind {
	case KindCatalog:
		r.SchemaErrors = ValidateCatalogBytes(data)
		if len(r.SchemaErrors) == 0 {
			if _, err := catalog.Parse(data); err != nil {
				r.SemanticErrors = append(r.SemanticErrors, err.Error())
			}
		}
	case KindLevel:
		r.SchemaErrors = ValidateLevelBytes(data)
		if len(r.SchemaErrors) == 0 {
			r.SemanticErrors = levelSemantics(data)
		}
	case KindPlacement:
		r.SchemaErrors = ValidatePlacementBytes(data)
		if len(r.SchemaErrors) == 0 && cat != nil {
			r.SemanticErrors = placementSemantics(data, cat)
		}
	}
	return r
}

func levelSemantics(data []byte) []string {
	var level models.Level
	if err := yaml.Unmarshal(data, &level); err != nil {
		return []string{err.Error()}
	}
	var errs []string
	if err := level.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(level.Scenarios) == 0 {
		errs = append(errs, "level has no scenarios; every run will score 0% accuracy")
	}
	return errs
}

func placementSemantics(data []byte, cat *catalog.Catalog) []string {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return []string{err.Error()}
	}
	p := models.Placement{}
	for k, v := range raw {
		p[models.Role(k)] = v
	}
	cfg, err := cat.Resolve(p)
	if err != nil {
		return []string{err.Error()}
	}
	var errs []string
	if missing := cfg.MissingRoles(models.RequiredRoles); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		errs = append(errs, fmt.Sprintf("missing required roles: %s", strings.Join(names, ", ")))
	}
	return errs
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	return validateAgainstSchema(schema, convertToJSONCompatible(yamlDoc))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	sort.Strings(errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible normalizes YAML-decoded values for the schema
// validator: nested maps keyed by any become map[string]any.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[fmt.Sprint(k)] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
