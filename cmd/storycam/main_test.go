package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/capture/framedir"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/preview"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCmd(input string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	return cmd, out
}

func TestReview_QuitDiscards(t *testing.T) {
	cmd, out := testCmd("q\n")
	buf := preview.New()
	require.NoError(t, buf.Hold(domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: "image/jpeg", Data: []byte("x")}))

	require.NoError(t, review(cmd, &options{}, buf, nil))

	assert.Equal(t, preview.Empty, buf.State())
	assert.Contains(t, out.String(), "Discarded.")
}

func TestReview_RetakeReplacesCapture(t *testing.T) {
	cmd, out := testCmd("r\nq\n")
	buf := preview.New()
	require.NoError(t, buf.Hold(domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: "image/jpeg", Data: []byte("first")}))

	cam := &stubCamera{next: []byte("second!")}

	require.NoError(t, review(cmd, &options{caption: "hi"}, buf, cam))

	assert.Equal(t, 1, cam.takes)
	assert.Zero(t, cam.flips)
	assert.Contains(t, out.String(), "5 bytes")
	assert.Contains(t, out.String(), "7 bytes")
	assert.Contains(t, out.String(), "[f]lip")
}

func TestReview_FlipSwitchesBeforeRetaking(t *testing.T) {
	cmd, out := testCmd("f\nq\n")
	buf := preview.New()
	require.NoError(t, buf.Hold(domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: "image/jpeg", Data: []byte("back")}))
	cam := &stubCamera{next: []byte("front")}

	require.NoError(t, review(cmd, &options{}, buf, cam))

	assert.Equal(t, 1, cam.flips)
	assert.Equal(t, 1, cam.takes)
	assert.Contains(t, out.String(), "Switched camera.")
}

func TestReview_FlipIgnoredForFiles(t *testing.T) {
	cmd, out := testCmd("f\nq\n")
	buf := preview.New()
	require.NoError(t, buf.Hold(domain.CapturedMedia{Kind: domain.MediaPhoto, Data: []byte("x")}))

	require.NoError(t, review(cmd, &options{}, buf, nil))

	assert.NotContains(t, out.String(), "Switched camera.")
	assert.NotContains(t, out.String(), "[f]lip")
}

type stubCamera struct {
	next  []byte
	takes int
	flips int
}

func (c *stubCamera) Retake() (domain.CapturedMedia, error) {
	c.takes++
	return domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: "image/jpeg", Data: c.next}, nil
}

func (c *stubCamera) Flip() error {
	c.flips++
	return nil
}

// frameCamera acquires a frame directory device with one frame per facing.
func frameCamera(t *testing.T, threshold time.Duration) *capture.Adapter {
	t.Helper()
	root := t.TempDir()
	for facing, frame := range map[capture.Facing]string{capture.FacingBack: "back-frame", capture.FacingFront: "front-frame"} {
		dir := filepath.Join(root, string(facing))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte(frame), 0o644))
	}

	a := capture.NewAdapter(
		framedir.New(root, framedir.WithFrameInterval(5*time.Millisecond)),
		capture.WithHoldThreshold(threshold),
	)
	require.NoError(t, a.Acquire(context.Background(), capture.FacingBack))
	t.Cleanup(a.Close)
	return a
}

func TestPressFor_ShortPressTakesPhoto(t *testing.T) {
	a := frameCamera(t, time.Hour)

	media, err := pressFor(0)(context.Background(), a)

	require.NoError(t, err)
	assert.Equal(t, domain.MediaPhoto, media.Kind)
	assert.Equal(t, "back-frame", string(media.Data))
	assert.Equal(t, capture.Live, a.State())
}

func TestPressFor_HoldPastThresholdRecords(t *testing.T) {
	a := frameCamera(t, 10*time.Millisecond)

	media, err := pressFor(200*time.Millisecond)(context.Background(), a)

	require.NoError(t, err)
	assert.Equal(t, domain.MediaVideo, media.Kind)
	assert.Equal(t, domain.ContentTypeMJPEG, media.ContentType)
	assert.NotEmpty(t, media.Data)
	assert.Equal(t, capture.Live, a.State())
}

func TestLiveCamera_FlipUsesOppositeFacing(t *testing.T) {
	a := frameCamera(t, time.Hour)
	cam := &liveCamera{
		ctx:     context.Background(),
		adapter: a,
		shoot: func(_ context.Context, a *capture.Adapter) (domain.CapturedMedia, error) {
			return a.CapturePhoto()
		},
	}

	require.NoError(t, cam.Flip())
	media, err := cam.Retake()

	require.NoError(t, err)
	assert.Equal(t, capture.FacingFront, a.Facing())
	assert.Equal(t, "front-frame", string(media.Data))
}

func TestReview_ShareNeedsCredentials(t *testing.T) {
	cmd, _ := testCmd("s\n")
	buf := preview.New()
	require.NoError(t, buf.Hold(domain.CapturedMedia{Kind: domain.MediaPhoto, Data: []byte("x")}))

	err := review(cmd, &options{}, buf, nil)

	require.Error(t, err)
	// nothing was consumed, the capture is still pending
	assert.Equal(t, preview.Holding, buf.State())
}

func TestDescribe(t *testing.T) {
	clip := domain.CapturedMedia{Kind: domain.MediaVideo, ContentType: domain.ContentTypeMJPEG, Data: make([]byte, 10), Duration: 1500 * time.Millisecond}
	assert.Equal(t, "Captured video/x-motion-jpeg clip, 1.5s, 10 bytes", describe(clip))

	photo := domain.CapturedMedia{Kind: domain.MediaPhoto, ContentType: "image/png", Data: make([]byte, 3)}
	assert.Equal(t, "Captured image/png photo, 3 bytes", describe(photo))
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"snap", "record", "press", "publish"}, names)

	rec, _, err := root.Find([]string{"record"})
	require.NoError(t, err)
	d, err := rec.Flags().GetDuration("duration")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	press, _, err := root.Find([]string{"press"})
	require.NoError(t, err)
	hold, err := press.Flags().GetDuration("hold")
	require.NoError(t, err)
	assert.Zero(t, hold)
}
