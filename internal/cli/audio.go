package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/voice-console/internal/recorder"
	"go.uber.org/zap"
)

// audioFlags chooses where a sample comes from: a file, a timed capture, or
// an interactive capture started and stopped with Enter.
type audioFlags struct {
	file     string
	duration time.Duration
}

func (f *audioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the sample from an audio file instead of the microphone")
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 0, "record for a fixed time instead of waiting for Enter")
}

// capture returns one base64 sample.
func (a *App) capture(ctx context.Context, f audioFlags) (string, error) {
	var (
		audio string
		err   error
	)
	switch {
	case f.file != "":
		audio, err = encodeFile(f.file)
	case f.duration > 0:
		a.printf("%s\n", mutedStyle.Render(fmt.Sprintf("Recording for %s...", f.duration)))
		rctx, cancel := context.WithTimeout(ctx, f.duration)
		defer cancel()
		audio, err = recorder.Record(rctx, a.Source)
	default:
		audio, err = a.captureInteractive(ctx)
	}
	if err != nil && audio == "" {
		return "", err
	}
	if err != nil {
		a.Logger.Debug("capture ended with error", zap.Error(err))
	}
	return recorder.Normalize(audio)
}

func (a *App) captureInteractive(ctx context.Context) (string, error) {
	a.printf("%s\n", mutedStyle.Render("Press Enter to start recording."))
	if err := a.readLine(ctx); err != nil {
		return "", err
	}

	var audio string
	rec := recorder.New(a.Source, func(s string) { audio = s })
	if err := rec.Start(ctx); err != nil {
		return "", err
	}
	a.printf("%s\n", warnStyle.Render("● Recording... press Enter to stop."))
	waitErr := a.readLine(ctx)
	if err := rec.Stop(); err != nil {
		return audio, err
	}
	if waitErr != nil {
		return "", waitErr
	}
	return audio, nil
}

func encodeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()
	return recorder.Encode(f)
}
