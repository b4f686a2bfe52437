package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// yamlConfig loads a YAML config file whose keys are flag names, with either
// dashes or underscores, eg.
//
//	dsn: fedinode.db
//	delivery_timeout: 10s
//	policy_domains: [example.com, another-allowed-domain.com]
//
// A value is only used when neither its flag nor its environment variable is set.
func yamlConfig(r io.Reader) (kong.Resolver, error) {
	values := make(map[string]any)
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	var resolver kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (interface{}, error) {
		if flag.Tag.Env != "" {
			if _, ok := os.LookupEnv(flag.Tag.Env); ok {
				return nil, nil
			}
		}
		v, ok := values[flag.Name]
		if !ok {
			v, ok = values[strings.ReplaceAll(flag.Name, "-", "_")]
		}
		if !ok {
			return nil, nil
		}
		return configValue(v), nil
	}
	return resolver, nil
}

// configValue flattens YAML sequences into the comma separated form kong
// parses slice flags from.
func configValue(v any) any {
	switch v := v.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case nil:
		return nil
	default:
		return fmt.Sprint(v)
	}
}
