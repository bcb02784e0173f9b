package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i2y/brandlink/answer"
	"github.com/i2y/brandlink/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	model      string
	baseURL    string
	timeoutMs  int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "brandlink",
		Short: "Ask the brandlink answer service",
		Long: `brandlink sends questions to the answer service and prints the answer
together with any recommended brand link.

Examples:
  brandlink ask "what is a good budget laptop"
  brandlink stream best trail running shoes
  brandlink schema metadata
  brandlink mcp`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	pf.StringVarP(&flags.model, "model", "m", "", "Model used for the answer")
	pf.StringVar(&flags.baseURL, "base-url", "", "Answer service URL")
	pf.IntVar(&flags.timeoutMs, "timeout", 0, "Request timeout in milliseconds")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log requests to stderr")

	cmd.AddCommand(
		newAskCmd(flags),
		newStreamCmd(flags),
		newSchemaCmd(),
		newMCPCmd(flags),
	)
	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (f *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load(cmd.Context())
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.model != "" {
		cfg.Model = f.model
	}
	if f.baseURL != "" {
		cfg.BaseURL = f.baseURL
	}
	if f.timeoutMs > 0 {
		cfg.TimeoutMs = f.timeoutMs
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newClient builds an answer client from config and flags. Logs go to
// stderr so stdout carries only the answer.
func (f *globalFlags) newClient(cmd *cobra.Command) (*answer.Client, *config.Config, error) {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	opts := append(cfg.Options(), answer.WithLogger(logger))
	client, err := answer.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// question joins positional arguments or reads stdin when none are given.
func question(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading question from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// waitImpressions gives background impression registrations a bounded
// chance to finish before the process exits.
func waitImpressions(client *answer.Client, limit time.Duration) {
	done := make(chan struct{})
	go func() {
		client.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
	}
}
