package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

// schemas lists every message and response clients exchange with the
// contract, keyed by output file name.
var schemas = []struct {
	name  string
	value any
}{
	{"instantiate_msg", ports.InstantiateMsg{}},
	{"execute_msg", ports.ExecuteMsg{}},
	{"query_msg", ports.QueryMsg{}},
	{"config", domain.Config{}},
	{"tally_response", ports.TallyResponse{}},
	{"poll_response", ports.PollResponse{}},
}

func main() {
	out := flag.String("out", "schema", "Output directory")
	flag.Parse()

	written, err := writeSchemas(*out)
	if err != nil {
		slog.Error("failed to write schemas", "error", err)
		os.Exit(1)
	}
	for _, path := range written {
		slog.Info("wrote schema", "path", path)
	}
}

// writeSchemas removes stale *.json files from dir and writes one schema per
// type.
func writeSchemas(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	stale, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	reflector := &jsonschema.Reflector{ExpandedStruct: true}

	written := make([]string, 0, len(schemas))
	for _, s := range schemas {
		b, err := json.MarshalIndent(reflector.Reflect(s.value), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s schema: %w", s.name, err)
		}

		path := filepath.Join(dir, s.name+".json")
		if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
