package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/i2y/brandlink/answer"
)

const impressionWait = 5 * time.Second

type askFlags struct {
	json         bool
	raw          bool
	noImpression bool
}

func newAskCmd(global *globalFlags) *cobra.Command {
	flags := &askFlags{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question and print the complete answer",
		Long: `Ask sends the question to the non-streaming endpoint and prints the
answer once it is complete. Without arguments the question is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args, global, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the raw JSON response")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "Print plain text instead of rendered markdown")
	cmd.Flags().BoolVar(&flags.noImpression, "no-impression", false, "Do not register an impression")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string, global *globalFlags, flags *askFlags) error {
	msg, err := question(cmd, args)
	if err != nil {
		return err
	}
	client, cfg, err := global.newClient(cmd)
	if err != nil {
		return err
	}
	defer waitImpressions(client, impressionWait)

	opts := cfg.CallOptions()
	if flags.noImpression {
		opts = append(opts, answer.WithoutImpression())
	}

	s := newSpinner(cmd.ErrOrStderr(), "Thinking...")
	s.Start()
	resp, err := client.Ask(cmd.Context(), answer.Request{Message: msg}, opts...)
	s.Stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		return nil
	}

	if err := newRenderer(out, flags.raw).answer(resp.Response); err != nil {
		return err
	}
	placement(out, &resp.Metadata)
	return nil
}
