package plan

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for plan loading.
const (
	ErrCodeNotFound     = "PLAN_NOT_FOUND"
	ErrCodeNoFiles      = "PLAN_NO_FILES"
	ErrCodeLoadFailed   = "PLAN_LOAD_FAILED"
	ErrCodeBuildFailed  = "PLAN_BUILD_FAILED"
	ErrCodeSchemaFailed = "PLAN_SCHEMA_VIOLATION"
)

// LoadError is an error raised while loading or validating a plan.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Entry is one bundle action in a plan.
type Entry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Plan is a validated install plan.
type Plan struct {
	Install   []Entry `json:"install"`
	Update    []Entry `json:"update"`
	Uninstall []Entry `json:"uninstall"`
	// Refresh overrides the default refresh decision when set.
	Refresh *bool `json:"refresh"`
}

// NeedsRefresh reports whether compiling this plan appends a refresh
// task. Defaults to true when the plan updates or uninstalls anything.
func (p *Plan) NeedsRefresh() bool {
	if p.Refresh != nil {
		return *p.Refresh
	}
	return len(p.Update) > 0 || len(p.Uninstall) > 0
}

// Load reads and validates the CUE plan in the given directory.
func Load(dir string) (*Plan, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("plan directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing plan directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building plan schema: %v", err)}
	}
	planDef := schema.LookupPath(cue.MakePath(cue.Def("#Plan")))
	if err := planDef.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("plan schema missing #Plan: %v", err)}
	}

	unified := planDef.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchemaFailed, Message: fmt.Sprintf("plan does not satisfy schema: %v", err)}
	}

	var p Plan
	if err := unified.Decode(&p); err != nil {
		return nil, &LoadError{Code: ErrCodeSchemaFailed, Message: fmt.Sprintf("decoding plan: %v", err)}
	}
	return &p, nil
}

// findCUEFiles lists .cue files directly inside dir, sorted by name.
func findCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cue") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
