package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"roster/internal/app"
	"roster/internal/platform/config"
	"roster/internal/platform/logger"
)

const programName = "rosterctl"

// cli carries state shared by subcommands between the persistent pre- and
// post-run hooks.
type cli struct {
	configFile string
	backend    string
	badgerDir  string
	debug      bool

	cfg    *config.Config
	app    *app.App
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           programName,
		Short:         "Operate the member registry directly against its store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to config file (default $ROSTER_CONFIG)")
	root.PersistentFlags().StringVar(&c.backend, "backend", "", "override the store backend")
	root.PersistentFlags().StringVar(&c.badgerDir, "badger-dir", "", "override the badger data directory")
	root.PersistentFlags().BoolVarP(&c.debug, "debug", "D", false, "enable debug logging")

	root.AddCommand(
		c.registerCommand(),
		c.getCommand(),
		c.listCommand(),
		c.searchCommand(),
		c.statsCommand(),
		c.migrateCommand(),
	)
	return root
}

func (c *cli) loadConfig() error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.backend != "" {
		cfg.StoreBackend = c.backend
	}
	if c.badgerDir != "" {
		cfg.BadgerDir = c.badgerDir
	}
	if c.debug {
		cfg.LogLevel = "debug"
	}
	// stdout carries command output.
	cfg.Tracing.Enabled = false
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// open wires the registry. Logs go to stderr so stdout stays JSON.
func (c *cli) open(cmd *cobra.Command) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	log, err := logger.NewWithWriter(cmd.ErrOrStderr(), c.cfg.LogLevel, "text")
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), c.cfg, log)
	if err != nil {
		return err
	}
	c.app = a

	ctx, cancel := context.WithCancel(context.WithoutCancel(cmd.Context()))
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := a.Run(ctx); err != nil {
			log.Error("audit worker stopped", "error", err)
		}
	}()
	return nil
}

// close stops the audit worker, letting it drain, then releases the store.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	err := c.app.Close()
	c.app = nil
	return err
}

// withApp runs fn against a freshly opened registry.
func (c *cli) withApp(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.open(cmd); err != nil {
			return err
		}
		err := fn(cmd, args)
		if cerr := c.close(); err == nil {
			err = cerr
		}
		return err
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
