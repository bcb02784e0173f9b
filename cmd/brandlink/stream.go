package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i2y/brandlink/answer"
	"github.com/i2y/brandlink/dispatch"
)

type streamFlags struct {
	buffered     bool
	raw          bool
	noImpression bool
}

func newStreamCmd(global *globalFlags) *cobra.Command {
	flags := &streamFlags{}

	cmd := &cobra.Command{
		Use:   "stream [question]",
		Short: "Ask a question and print the answer as it arrives",
		Long: `Stream prints answer text as the service produces it, followed by the
recommended brand link. With --buffered the answer is collected first and
printed once, rendered as markdown unless --raw is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, args, global, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.buffered, "buffered", false, "Wait for the whole answer before printing")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "Print plain text instead of rendered markdown (buffered only)")
	cmd.Flags().BoolVar(&flags.noImpression, "no-impression", false, "Do not register an impression")
	return cmd
}

func runStream(cmd *cobra.Command, args []string, global *globalFlags, flags *streamFlags) error {
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
	req := answer.Request{Message: msg}
	out := cmd.OutOrStdout()

	if flags.buffered {
		sink := &dispatch.MemorySink{}
		s := newSpinner(cmd.ErrOrStderr(), "Thinking...")
		s.Start()
		md, err := client.AskBuffered(cmd.Context(), req, append(opts, answer.WithSinks(sink))...)
		s.Stop()
		if err != nil {
			return err
		}
		if err := newRenderer(out, flags.raw).answer(sink.Text()); err != nil {
			return err
		}
		placement(out, md)
		return nil
	}

	md, err := client.AskStream(cmd.Context(), req, func(answer.Event) error { return nil },
		append(opts, answer.WithSinks(dispatch.NewWriterSink(out)))...)
	if err != nil {
		return err
	}
	// The sink ends the output with the link line when there is one.
	if md == nil || md.Link == "" {
		fmt.Fprintln(out)
	}
	return nil
}
