package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/hupe1980/knowledgenet"
	"github.com/hupe1980/knowledgenet/config"
	"github.com/hupe1980/knowledgenet/logging"
	"github.com/hupe1980/knowledgenet/metrics"
)

type commonFlags struct {
	configPath string
	dir        string
	keysPath   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config file")
	fs.StringVar(&c.dir, "dir", "", "Agent configuration directory")
	fs.StringVar(&c.keysPath, "keys", "", "Path to credentials file")
}

// load reads the configuration and applies flag overrides.
func (c *commonFlags) load() (*config.Config, error) {
	loader := config.NewLoader()
	if c.configPath != "" {
		loader = loader.WithConfigPath(c.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if c.dir != "" {
		cfg.Agents.Dir = c.dir
	}
	if c.keysPath != "" {
		cfg.Agents.KeysFile = c.keysPath
	}
	return cfg, nil
}

// bootstrap builds the logger and loads the agents of cfg.
func bootstrap(ctx context.Context, cfg *config.Config, logOut io.Writer, collector *metrics.Collector) (*knowledgenet.KnowledgeNet, logging.Logger, error) {
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, nil, err
	}
	keys, err := config.LoadKeys(cfg.Agents.KeysFile)
	if err != nil {
		return nil, nil, err
	}

	kn := knowledgenet.New(func(o *knowledgenet.Options) {
		o.Logger = logger
		o.Metrics = collector
		o.Keys = keys
		o.MaxCallDepth = cfg.Agents.MaxCallDepth
	})
	if _, err := kn.Load(ctx, cfg.Agents.Dir); err != nil {
		return nil, nil, fmt.Errorf("failed to materialize agents: %w", err)
	}
	return kn, logger, nil
}
