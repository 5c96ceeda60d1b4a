package spec

import (
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// schemaSource constrains field types. Unknown keys are allowed.
const schemaSource = `
#Scalar: string | number | bool

#TestSpec: {
	name:   string
	source: string
	args?:  null | [...#Scalar]
	...
}
`

// schema holds the compiled #TestSpec definition.
// cue.Context is not safe for concurrent use, so access is serialised.
var schema struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	def  cue.Value
	err  error
}

func compiledSchema() (*cue.Context, cue.Value, error) {
	schema.once.Do(func() {
		schema.ctx = cuecontext.New()
		v := schema.ctx.CompileString(schemaSource, cue.Filename("testspec.cue"))
		if err := v.Err(); err != nil {
			schema.err = err
			return
		}
		schema.def = v.LookupPath(cue.ParsePath("#TestSpec"))
		schema.err = schema.def.Err()
	})
	return schema.ctx, schema.def, schema.err
}

// validateSchema unifies the decoded document with #TestSpec.
func validateSchema(doc *yaml.Node, path string) error {
	var decoded any
	if err := doc.Decode(&decoded); err != nil {
		return invalid(path, "", "malformed YAML: %v", err)
	}

	schema.mu.Lock()
	defer schema.mu.Unlock()

	ctx, def, err := compiledSchema()
	if err != nil {
		return invalid(path, "", "spec schema unavailable: %v", err)
	}

	value := ctx.Encode(decoded)
	if err := value.Err(); err != nil {
		return invalid(path, "", "unsupported value: %v", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return invalid(path, schemaErrorField(err), "%s", schemaErrorMessage(err))
	}
	return nil
}

// schemaErrorField returns the top-level spec key the first error refers to.
func schemaErrorField(err error) string {
	for _, e := range cueerrors.Errors(err) {
		for _, sel := range e.Path() {
			switch sel {
			case FieldName, FieldSource, FieldArgs:
				return sel
			}
		}
	}
	return ""
}

func schemaErrorMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, strings.TrimPrefix(e.Error(), "#TestSpec."))
	}
	return strings.Join(msgs, "; ")
}
