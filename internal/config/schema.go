package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const schemaSource = `
#Config: {
	database: string & !=""
	remote: {
		base_url:          =~"^https?://[^/]+"
		api_key:           string
		events_collection: string & !=""
		users_collection:  string & !=""
		timeout:           int & >0
	}
	sync: schedule: string
	log: level: "debug" | "info" | "warn" | "error"
	emulator: {
		listen:     string & !=""
		seed:       string
		jwt_secret: string & !=""
	}
}
`

// ValidationError lists every constraint a configuration violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks c against the configuration schema.
func Validate(c Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(document(c)))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, strings.TrimSpace(e.Error()))
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// document mirrors c with durations as integer nanoseconds.
func document(c Config) map[string]any {
	return map[string]any{
		"database": c.Database,
		"remote": map[string]any{
			"base_url":          c.Remote.BaseURL,
			"api_key":           c.Remote.APIKey,
			"events_collection": c.Remote.EventsCollection,
			"users_collection":  c.Remote.UsersCollection,
			"timeout":           int64(c.Remote.Timeout),
		},
		"sync": map[string]any{"schedule": c.Sync.Schedule},
		"log":  map[string]any{"level": c.Log.Level},
		"emulator": map[string]any{
			"listen":     c.Emulator.Listen,
			"seed":       c.Emulator.Seed,
			"jwt_secret": c.Emulator.JWTSecret,
		},
	}
}
