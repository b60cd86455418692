package config

import (
	"os"
	"reflect"
	"strings"
	"sync"
)

// EnvMapping ties one SPECMATCH_* variable (or a provider key such as
// OPENAI_API_KEY) to the dotted koanf path it overrides.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
	// Separator splits list values; empty means the value is a scalar.
	Separator string
	Sensitive bool
}

var configFields = sync.OnceValue(func() []EnvMapping {
	return walkConfig(reflect.TypeFor[Config](), "", nil)
})

// walkConfig collects every koanf leaf of t.
func walkConfig(t reflect.Type, prefix string, out []EnvMapping) []EnvMapping {
	for field := range fieldsOf(t) {
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			out = walkConfig(field.Type, path, out)
			continue
		}
		m := EnvMapping{
			ConfigPath: path,
			Sensitive:  field.Type == reflect.TypeFor[SensitiveString]() || field.Tag.Get("sensitive") == "true",
		}
		if env := field.Tag.Get("env"); env != "-" {
			m.EnvVar = env
		}
		if field.Type.Kind() == reflect.Slice {
			m.Separator = field.Tag.Get("envsep")
			if m.Separator == "" {
				m.Separator = ","
			}
		}
		out = append(out, m)
	}
	return out
}

func fieldsOf(t reflect.Type) func(func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

// GenerateEnvMappings lists the config keys that can be set from the
// environment.
func GenerateEnvMappings() []EnvMapping {
	var out []EnvMapping
	for _, m := range configFields() {
		if m.EnvVar != "" {
			out = append(out, m)
		}
	}
	return out
}

// GenerateEnvToConfigMap indexes GenerateEnvMappings by variable name.
func GenerateEnvToConfigMap() map[string]EnvMapping {
	mappings := GenerateEnvMappings()
	result := make(map[string]EnvMapping, len(mappings))
	for _, m := range mappings {
		result[m.EnvVar] = m
	}
	return result
}

// EnvOverrides lists the mapped variables present in the process environment
// as name=value pairs, with secrets redacted.
func EnvOverrides() []string {
	var out []string
	for _, m := range GenerateEnvMappings() {
		raw, ok := os.LookupEnv(m.EnvVar)
		if !ok || raw == "" {
			continue
		}
		if m.Sensitive {
			raw = redacted
		}
		out = append(out, m.EnvVar+"="+raw)
	}
	return out
}

// envValue converts a raw variable into the value koanf stores for m.
func envValue(m EnvMapping, raw string) any {
	if m.Separator == "" {
		return raw
	}
	parts := strings.Split(raw, m.Separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
