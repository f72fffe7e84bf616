package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"call-insights-go/internal/app"
	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
)

type commandContext struct {
	configFlag *string
	envFlag    *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, envFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(config.Options{
			ConfigFile: strings.TrimSpace(*c.configFlag),
			EnvFile:    strings.TrimSpace(*c.envFlag),
		})
	})
	return c.config, c.configErr
}

// newLogger writes to stderr so stdout stays clean for tables and JSON.
func (c *commandContext) newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	level := "warn"
	if *c.verbose {
		level = "info"
	}
	return logger.NewWithOptions(logger.Options{
		Environment: cfg.Server.Environment,
		Level:       level,
		Output:      cmd.ErrOrStderr(),
	})
}

// withApp builds the wired application for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	a, err := app.Build(cmd.Context(), cfg, c.newLogger(cmd, cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
