package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/exambot/internal/config"
	"github.com/okian/exambot/pkg/logger"
)

// cli carries state shared by subcommands once the root has loaded it.
type cli struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "exambot",
		Short:         "Exam timetable bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	root.AddCommand(
		newServeCmd(c),
		newCheckCmd(c),
		newQueryCmd(c),
		newListCmd(c),
	)
	return root
}

// setup loads configuration (defaults -> optional file -> env) and
// initializes logging with it.
func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	c.log = logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg
	return nil
}
