package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request body schemas, by file name without extension.
const (
	schemaSignin     = "signin"
	schemaVote       = "vote"
	schemaEvaluation = "evaluation"
	schemaAutoAssign = "auto_assign"
	schemaAssign     = "assign"
	schemaBulkRemove = "bulk_remove"
	schemaCandidate  = "candidate"
	schemaJury       = "jury"
	schemaLinkUser   = "link_user"
	schemaUser       = "user"
)

var schemas = mustLoadSchemas()

func mustLoadSchemas() map[string]*jsonschema.Schema {
	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		b, err := schemaFS.ReadFile(f)
		if err != nil {
			panic(err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			panic(fmt.Sprintf("schema %s: %v", f, err))
		}
		out[strings.TrimSuffix(path.Base(f), ".json")] = rs
	}
	return out
}

// validateBody checks body against the named schema. A non-nil error means the
// body is not JSON at all; schema violations are returned as problems.
func validateBody(ctx context.Context, name string, body []byte) ([]string, error) {
	rs, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	errs, err := rs.ValidateBytes(ctx, body)
	if err != nil {
		return nil, err
	}
	problems := make([]string, 0, len(errs))
	for _, e := range errs {
		problems = append(problems, e.Error())
	}
	return problems, nil
}
