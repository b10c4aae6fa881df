package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"leadpipe_backend/internal/stages"
	"leadpipe_backend/internal/stages/transport"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/db"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

//go:embed default_pipeline.yaml
var defaultPipeline []byte

type pipelineFile struct {
	Stages []transport.CreateStageRequest `yaml:"stages"`
}

type options struct {
	orgs []uuid.UUID
	file string
}

func parseOptions(args []string) (options, error) {
	flagSet := flag.NewFlagSet("stage-seed", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	orgs := flagSet.StringSlice("org", nil, "Organization id to seed (repeatable)")
	file := flagSet.StringP("file", "f", "", "Pipeline YAML file (defaults to the built-in pipeline)")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if len(*orgs) == 0 {
		return options{}, errors.New("at least one --org is required")
	}

	opts := options{file: *file}
	for _, raw := range *orgs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return options{}, fmt.Errorf("invalid --org %q: %w", raw, err)
		}
		opts.orgs = append(opts.orgs, id)
	}
	return opts, nil
}

// loadPipeline decodes and validates a pipeline definition. Unknown keys
// are rejected so typos do not silently drop settings.
func loadPipeline(r io.Reader, val *validator.Validator) ([]transport.CreateStageRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file pipelineFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if len(file.Stages) == 0 {
		return nil, errors.New("pipeline defines no stages")
	}
	for i, def := range file.Stages {
		if err := val.Struct(def); err != nil {
			return nil, fmt.Errorf("stage %d (%q): %w", i, def.Name, err)
		}
	}
	return file.Stages, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "stage-seed:", err)
		os.Exit(2)
	}

	val := validator.New()
	source := io.Reader(bytes.NewReader(defaultPipeline))
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "stage-seed:", err)
			os.Exit(2)
		}
		defer f.Close()
		source = f
	}
	defs, err := loadPipeline(source, val)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stage-seed:", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	svc := stages.NewModule(pool, val, log).Service()
	for _, org := range opts.orgs {
		created, err := svc.Seed(ctx, org, defs)
		if err != nil {
			log.Error("stage seed failed", "organization_id", org.String(), "created", created, "error", err)
			continue
		}
		log.Info("stages seeded", "organization_id", org.String(), "created", created, "defined", len(defs))
	}
}
