package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"podscribe/pkg/config"
	"podscribe/pkg/httpclient"
	"podscribe/pkg/logging"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *zap.Logger
	runID  string
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
		runID:       uuid.NewString(),
	}
}

// ensureConfig loads .env, then the config file, once per process. Validation, which
// requires an API key, runs only for commands that call the backend.
func (c *commandContext) ensureConfig(validate bool) (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFileFlag != nil {
			if err := config.LoadDotEnv(strings.TrimSpace(*c.envFileFlag)); err != nil {
				c.configErr = err
				return
			}
		}

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}

		load := config.LoadUnvalidated
		if validate {
			load = config.Load
		}
		cfg, _, _, err := load(path)
		if err != nil {
			c.configErr = err
			return
		}

		logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if err != nil {
			c.configErr = fmt.Errorf("logging: %w", err)
			return
		}
		c.logger = logger.With(zap.String("run_id", c.runID))
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	return c.config
}

func (c *commandContext) log() *zap.SugaredLogger {
	if c.logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.logger.Sugar()
}

func (c *commandContext) httpClient() (*httpclient.HTTPClient, error) {
	profile, err := httpclient.ParseClientType(c.config.Feed.HTTPProfile)
	if err != nil {
		return nil, err
	}
	return httpclient.NewClient(profile), nil
}

// showProgress reports whether progress bars should be drawn on stderr.
func (c *commandContext) showProgress() bool {
	if c.config == nil || !c.config.Download.Progress {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *commandContext) close() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
