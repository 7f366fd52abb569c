package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/capture/framedir"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/preview"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/formatter"
	"github.com/spf13/cobra"
)

// shootFunc produces one capture from a live adapter.
type shootFunc func(ctx context.Context, a *capture.Adapter) (domain.CapturedMedia, error)

func newSnapCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snap",
		Short: "Take a photo and share it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCamera(cmd, opts, func(_ context.Context, a *capture.Adapter) (domain.CapturedMedia, error) {
				return a.CapturePhoto()
			})
		},
	}
}

func newRecordCmd(opts *options) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a clip and share it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if duration <= 0 {
				return fmt.Errorf("duration must be positive")
			}
			return runCamera(cmd, opts, func(ctx context.Context, a *capture.Adapter) (domain.CapturedMedia, error) {
				if err := a.StartRecording(); err != nil {
					return domain.CapturedMedia{}, err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording for %s...\n", duration)
				select {
				case <-time.After(duration):
				case <-ctx.Done():
				}
				// a cancelled run still flushes what was recorded so far
				return a.StopRecording(context.WithoutCancel(ctx))
			})
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 3*time.Second, "clip length")
	return cmd
}

func newPressCmd(opts *options) *cobra.Command {
	var hold time.Duration

	cmd := &cobra.Command{
		Use:   "press",
		Short: "Press the shutter: a short press takes a photo, holding records a clip",
		Long: `Presses the capture control for --hold. Holding past CAPTURE_HOLD_THRESHOLD
starts a recording that ends on release; a shorter press takes a photo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hold < 0 {
				return fmt.Errorf("hold must not be negative")
			}
			return runCamera(cmd, opts, pressFor(hold))
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", 0, "how long the control stays pressed")
	return cmd
}

// pressFor holds the capture control for hold and releases it.
func pressFor(hold time.Duration) shootFunc {
	return func(ctx context.Context, a *capture.Adapter) (domain.CapturedMedia, error) {
		if err := a.PressStart(); err != nil {
			return domain.CapturedMedia{}, err
		}
		select {
		case <-time.After(hold):
		case <-ctx.Done():
		}
		return a.PressEnd(context.WithoutCancel(ctx))
	}
}

func newPublishCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <file>",
		Short: "Share an existing photo or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			media, err := capture.FromFile(http.DetectContentType(data), data)
			if err != nil {
				return err
			}

			buf := preview.New()
			if err := buf.Hold(media); err != nil {
				return err
			}
			return review(cmd, opts, buf, nil)
		},
	}
}

func runCamera(cmd *cobra.Command, opts *options, shoot shootFunc) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	facing, err := capture.ParseFacing(opts.facing)
	if err != nil {
		return err
	}

	device := framedir.New(cfg.Capture.FrameDir, framedir.WithFrameInterval(cfg.Capture.FrameInterval))
	adapter := capture.NewAdapter(device, capture.WithHoldThreshold(cfg.Capture.HoldThreshold))
	defer adapter.Close()

	ctx := cmd.Context()
	if err := adapter.Acquire(ctx, facing); err != nil {
		return err
	}

	cam := &liveCamera{ctx: ctx, adapter: adapter, shoot: shoot}
	media, err := cam.Retake()
	if err != nil {
		return err
	}
	buf := preview.New()
	if err := buf.Hold(media); err != nil {
		return err
	}
	return review(cmd, opts, buf, cam)
}

// camera captures again while a capture is under review.
type camera interface {
	Retake() (domain.CapturedMedia, error)
	// Flip switches to the opposite facing.
	Flip() error
}

type liveCamera struct {
	ctx     context.Context
	adapter *capture.Adapter
	shoot   shootFunc
}

func (c *liveCamera) Retake() (domain.CapturedMedia, error) {
	return c.shoot(c.ctx, c.adapter)
}

func (c *liveCamera) Flip() error {
	return c.adapter.SwitchFacing(c.ctx)
}

// review shows the pending capture and loops until it is shared or dropped.
// cam is nil when there is no device to capture from again.
func review(cmd *cobra.Command, opts *options, buf *preview.Buffer, cam camera) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	if opts.caption != "" {
		if err := buf.SetCaption(opts.caption); err != nil {
			return err
		}
	}

	for {
		media, ok := buf.Peek()
		if !ok {
			return nil
		}
		fmt.Fprintln(out, describe(media))
		if opts.yes {
			return share(cmd, opts, buf)
		}

		prompt := "[s]hare, [q]uit"
		if cam != nil {
			prompt = "[s]hare, [r]etake, [f]lip, [q]uit"
		}
		fmt.Fprintf(out, "%s: ", prompt)
		answer, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}

		choice := strings.ToLower(strings.TrimSpace(answer))
		switch choice {
		case "s", "share":
			return share(cmd, opts, buf)
		case "r", "retake", "f", "flip":
			if cam == nil {
				continue
			}
			if err := buf.Discard(); err != nil {
				return err
			}
			if choice == "f" || choice == "flip" {
				if err := cam.Flip(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Switched camera.")
			}
			next, err := cam.Retake()
			if err != nil {
				return err
			}
			if err := buf.Hold(next); err != nil {
				return err
			}
			if opts.caption != "" {
				_ = buf.SetCaption(opts.caption)
			}
		default:
			_ = buf.Discard()
			fmt.Fprintln(out, "Discarded.")
			return nil
		}
		if err == io.EOF {
			return nil
		}
	}
}

func describe(media domain.CapturedMedia) string {
	if media.Kind == domain.MediaVideo && media.Duration > 0 {
		return fmt.Sprintf("Captured %s clip, %s, %d bytes", media.ContentType, media.Duration.Round(time.Millisecond), len(media.Data))
	}
	return fmt.Sprintf("Captured %s %s, %d bytes", media.ContentType, media.Kind, len(media.Data))
}

func share(cmd *cobra.Command, opts *options, buf *preview.Buffer) error {
	if opts.email == "" || opts.password == "" {
		return fmt.Errorf("email and password are required to share")
	}

	media, caption, err := buf.Consume()
	if err != nil {
		return err
	}

	svc, err := startServices(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.stop()

	ctx := cmd.Context()
	creds, err := svc.identity.SignIn(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}

	story, err := svc.publish.Publish(context.WithoutCancel(ctx), media, creds.UserID, caption)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Shared story %s, visible for %s\n",
		story.ID, formatter.FormatRemaining(story.CreatedAt, story.ExpiresAt))
	return nil
}
