// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/semflow"
	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/core"
	"github.com/poiesic/semflow/enrich"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "semflow",
		Usage: "Semantic enrichment for batches of document writes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "register-model",
				Usage:  "Register a model configuration in the registry",
				Action: registerModelCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB registry directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Model ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "service",
						Usage: "Inference service name",
						Value: "openai",
					},
					&cli.StringFlag{
						Name:  "task-type",
						Usage: "Model task type (sparse_embedding, text_embedding)",
						Value: string(ai.TaskTypeSparseEmbedding),
					},
					&cli.StringSliceFlag{
						Name:  "setting",
						Usage: "Service-specific setting as key=value (repeatable)",
					},
				},
			},
			{
				Name:   "set-mapping",
				Usage:  "Set the field→model mapping for an index",
				Action: setMappingCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB registry directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "index",
						Usage:    "Target index name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "model",
						Usage:    "Model ID the fields map to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "fields",
						Usage:    "Comma-separated field names",
						Required: true,
					},
				},
			},
			{
				Name:   "enrich",
				Usage:  "Enrich a batch of NDJSON documents with inference results",
				Action: enrichCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB registry directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "index",
						Usage:    "Target index name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Input NDJSON file (defaults to stdin)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output NDJSON file (defaults to stdout)",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "Inference service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Inference service API token",
						Value: "none",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size for concurrent inference calls",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func registerModelCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := semflow.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer engine.Close()

	settings, err := parseSettings(c.StringSlice("setting"))
	if err != nil {
		return err
	}

	model := &ai.Model{
		ID:       c.String("id"),
		TaskType: ai.TaskType(c.String("task-type")),
		Service:  c.String("service"),
		Settings: settings,
	}
	if err := engine.RegisterModel(ctx, model); err != nil {
		return fmt.Errorf("failed to register model: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Registered model %s (service: %s)\n", model.ID, model.Service)
	return nil
}

func setMappingCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := semflow.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer engine.Close()

	index := c.String("index")
	model := c.String("model")
	fields := splitFields(c.String("fields"))
	if len(fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}

	mapping, err := engine.Mapping(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to load mapping: %w", err)
	}
	if mapping == nil {
		mapping = make(map[string][]string)
	}
	mapping[model] = fields

	if err := engine.SetMapping(ctx, index, mapping); err != nil {
		return fmt.Errorf("failed to store mapping: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Mapped %d field(s) of index %s to model %s\n", len(fields), index, model)
	return nil
}

func enrichCommand(c *cli.Context) error {
	ctx := context.Background()

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithToken(c.String("token")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	engine, err := semflow.Open(c.String("db"), semflow.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer engine.Close()

	input := io.Reader(os.Stdin)
	if path := c.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		input = f
	}

	output := io.Writer(os.Stdout)
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		output = f
	}

	items, err := decodeItems(input)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var enricherOpts []enrich.Option
	if size := c.Int("pool-size"); size > 0 {
		enricherOpts = append(enricherOpts, enrich.WithPoolSize(size))
	}
	enricher, err := engine.NewEnricher(enricherOpts...)
	if err != nil {
		return fmt.Errorf("failed to create enricher: %w", err)
	}
	defer enricher.Release()

	batch := &core.Batch{Index: c.String("index"), Items: items}
	if err := batch.Validate(); err != nil {
		return err
	}

	result, err := enricher.Enrich(ctx, batch, func(itemIndex int, cause error) {
		slog.Error("document enrichment failed", "index", itemIndex, "doc", items[itemIndex].DocID, "err", cause)
	})
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	if err := encodeBatch(output, result); err != nil {
		return err
	}

	slog.Info("enrichment complete", "submitted", len(items), "written", result.Len())
	return nil
}

// decodeItems reads one JSON document per line, converting each into an
// insert request. Documents without an "_id" field get a content-derived ID.
func decodeItems(r io.Reader) ([]*core.Item, error) {
	var items []*core.Item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var tree core.SourceTree
		if err := json.Unmarshal([]byte(text), &tree); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", line, err)
		}
		// A JSON null or empty object carries no document; skip it.
		if len(tree) == 0 {
			continue
		}
		items = append(items, itemFromTree(text, tree))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return items, nil
}

// itemFromTree builds an insert request from a decoded document. The "_id"
// field, when present, becomes the document ID and is removed from the source.
func itemFromTree(raw string, tree core.SourceTree) *core.Item {
	docID := ""
	if v, ok := tree["_id"]; ok {
		if s, isString := v.(string); isString {
			docID = s
		}
		delete(tree, "_id")
	}
	if docID == "" {
		docID = core.IDFromContent(raw).String()
	}
	return &core.Item{DocID: docID, Op: core.OpInsert, Doc: tree}
}

// encodeBatch writes the surviving documents as NDJSON, one per line.
func encodeBatch(w io.Writer, batch *core.Batch) error {
	enc := json.NewEncoder(w)
	for _, item := range batch.Items {
		if item == nil {
			continue
		}
		doc := item.SourceTree().Clone()
		if doc == nil {
			doc = core.SourceTree{}
		}
		doc["_id"] = item.DocID
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// parseSettings converts repeated key=value flags into a settings map.
func parseSettings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q: expected key=value", pair)
		}
		settings[key] = value
	}
	return settings, nil
}

// splitFields splits a comma-separated field list, dropping empty entries.
func splitFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
