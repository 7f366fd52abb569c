// Command storycam captures a photo or clip from a local frame device, shows
// it for review and publishes it as a story.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type options struct {
	facing   string
	caption  string
	email    string
	password string
	yes      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "storycam",
		Short:        "Capture and share 24 hour stories",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.facing, "facing", "back", "camera to use: front or back")
	flags.StringVar(&opts.caption, "caption", "", "caption attached to the story")
	flags.StringVar(&opts.email, "email", os.Getenv("STORYCAM_EMAIL"), "account email (env STORYCAM_EMAIL)")
	flags.StringVar(&opts.password, "password", os.Getenv("STORYCAM_PASSWORD"), "account password (env STORYCAM_PASSWORD)")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "share without asking for review")

	root.AddCommand(
		newSnapCmd(opts),
		newRecordCmd(opts),
		newPressCmd(opts),
		newPublishCmd(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
