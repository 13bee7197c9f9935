package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/project.schema.json
var schemaBytes []byte

const schemaResource = "project.schema.json"

var (
	compileOnce sync.Once
	compileErr  error
	rootSchema  *jsonschema.Schema
	kindSchemas map[Kind]*jsonschema.Schema
	printer     = message.NewPrinter(language.English)
)

// kindDefs maps a kind to its $defs entry in the embedded schema.
var kindDefs = map[Kind]string{
	KindAgent:             "agent",
	KindSubAgent:          "subAgent",
	KindTool:              "tool",
	KindContextConfig:     "contextConfig",
	KindHeadersSchema:     "headersSchema",
	KindFetchDefinition:   "fetchDefinition",
	KindCredential:        "credential",
	KindDataComponent:     "dataComponent",
	KindArtifactComponent: "artifactComponent",
	KindStatusComponent:   "statusComponent",
	KindTrigger:           "trigger",
	KindSkill:             "skill",
	KindPolicy:            "policy",
}

// ValidationIssue is a single schema violation.
type ValidationIssue struct {
	Path    string `json:"path"`    // instance location, e.g. "/fetchConfig/url"
	Message string `json:"message"` // human-readable error
	Keyword string `json:"keyword"` // schema keyword that failed
}

// SchemaValidationError reports that one canonical entity failed structural
// validation. Generation of that entity is aborted; siblings proceed.
type SchemaValidationError struct {
	Kind   Kind
	ID     string // best-effort; may be empty when the id itself is broken
	Issues []ValidationIssue
}

func (e *SchemaValidationError) Error() string {
	var parts []string
	for _, issue := range e.Issues {
		if issue.Path != "" {
			parts = append(parts, issue.Path+": "+issue.Message)
		} else {
			parts = append(parts, issue.Message)
		}
	}
	id := e.ID
	if id == "" {
		id = "?"
	}
	return fmt.Sprintf("%s %q failed validation: %s", e.Kind, id, strings.Join(parts, "; "))
}

// compileSchemas compiles the embedded schema once: the document root plus
// one subschema per entity kind.
func compileSchemas() {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaResource, doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}

		rootSchema, compileErr = c.Compile(schemaResource)
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
			return
		}

		kindSchemas = make(map[Kind]*jsonschema.Schema, len(kindDefs))
		for kind, def := range kindDefs {
			s, err := c.Compile(schemaResource + "#/$defs/" + def)
			if err != nil {
				compileErr = fmt.Errorf("compiling %s subschema: %w", kind, err)
				return
			}
			kindSchemas[kind] = s
		}
	})
}

// validateRoot checks the document envelope (top-level shape only; entity
// bags are validated one by one so a broken entity cannot fail the run).
func validateRoot(data []byte) ([]ValidationIssue, error) {
	compileSchemas()
	if compileErr != nil {
		return nil, compileErr
	}
	return validateAgainst(rootSchema, data)
}

// ValidateEntity validates one raw entity bag against its kind's subschema.
func ValidateEntity(kind Kind, raw json.RawMessage) ([]ValidationIssue, error) {
	compileSchemas()
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := kindSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for kind %q", kind)
	}
	return validateAgainst(s, raw)
}

func validateAgainst(s *jsonschema.Schema, data []byte) ([]ValidationIssue, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = s.Validate(inst)
	if err == nil {
		return nil, nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}
	return extractIssues(validationErr), nil
}

// extractIssues walks the error tree and returns leaf-level issues with
// specific property information, deduplicated.
func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectIssues(ve, &issues)

	if len(issues) == 0 {
		return []ValidationIssue{{Message: ve.Error()}}
	}
	return dedupeIssues(issues)
}

func collectIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		if ve.ErrorKind != nil {
			kwPath := ve.ErrorKind.KeywordPath()
			if len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
		}

		msg := ""
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		// Container keywords carry no information of their own.
		if keyword == "oneOf" || keyword == "allOf" || keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, ValidationIssue{Path: path, Message: msg, Keyword: keyword})
		return
	}

	for _, cause := range ve.Causes {
		collectIssues(cause, issues)
	}
}

func dedupeIssues(issues []ValidationIssue) []ValidationIssue {
	seen := make(map[string]bool)
	var result []ValidationIssue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}
