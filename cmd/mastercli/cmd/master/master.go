// Package master implements the "master" subcommand: decode a local
// WAV/FLAC file, run it through mastering.Engine end to end, and write
// the mastered result back out as WAV. It exercises the engine the way
// an eventual streaming host would, without needing one.
package master

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/audiophile-labs/mastering-engine/cmd/mastercli/internal/sampleio"
	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/fingerprint"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
	"github.com/audiophile-labs/mastering-engine/internal/mastering"
)

type options struct {
	preset            string
	intensity         float64
	preserveCharacter float64
	out               string
}

// Command builds the "master" subcommand.
func Command(settings *config.Settings) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "master [input.wav|input.flac]",
		Short: "Master a local audio file end to end through the adaptive engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
			go func() {
				<-sigChan
				fmt.Fprintln(cmd.ErrOrStderr(), "received interrupt, stopping")
				cancel()
			}()

			return run(ctx, settings, args[0], opts)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.Flags().StringVar(&opts.preset, "preset", viper.GetString("master.preset"), "Mastering preset (adaptive, gentle, warm, bright, punchy)")
	cmd.Flags().Float64Var(&opts.intensity, "intensity", 0.7, "Intensity in [0, 1]")
	cmd.Flags().Float64Var(&opts.preserveCharacter, "preserve-character", 0.7, "Preserve-character blend weight in [0, 1]")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output WAV path (required)")
	if err := cmd.MarkFlagRequired("out"); err != nil {
		fmt.Fprintf(os.Stderr, "error marking --out required: %v\n", err)
	}
	if opts.preset == "" {
		opts.preset = "adaptive"
	}

	return cmd
}

func run(ctx context.Context, settings *config.Settings, inPath string, opts *options) error {
	log := logger.Global().Module("mastercli")

	track, err := sampleio.Load(inPath)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", inPath, err)
	}
	log.Info("decoded input", logger.String("path", inPath), logger.Int("channels", track.Channels()))

	var fpStore fingerprint.Store
	if settings.Fingerprint.StorePath != "" {
		fpStore, err = fingerprint.OpenSQLiteStore(settings.Fingerprint.StorePath)
		if err != nil {
			return fmt.Errorf("opening fingerprint store: %w", err)
		}
	} else {
		fpStore = fingerprint.NewMemoryStore()
	}

	var fpExtractor fingerprint.Extractor
	if settings.Fingerprint.RemoteExtractURL != "" {
		fpExtractor = fingerprint.NewRemoteExtractor(settings.Fingerprint.RemoteExtractURL, settings.Fingerprint.ExtractDeadline)
	}

	engine := mastering.NewEngine(settings, fpStore, fpExtractor)
	defer engine.Close()
	engine.RegisterTrack(track)

	if _, err := engine.EnsureFingerprint(ctx, track.ID()); err != nil {
		log.Warn("fingerprint unavailable, continuing with descriptor-only targeting", logger.Error(err))
	}

	channels := make([][]float64, track.Channels())
	out := engine.StreamTrack(ctx, track.ID(), opts.preset, opts.intensity, opts.preserveCharacter)
	for chunk := range out {
		if chunk.Err != nil {
			return fmt.Errorf("mastering %s: %w", inPath, chunk.Err)
		}
		decoded := mastering.DecodePCM(chunk.Data, track.Channels())
		for c := range channels {
			channels[c] = append(channels[c], decoded[c]...)
		}
	}

	if err := sampleio.WriteWAV(opts.out, channels, int(track.SampleRate())); err != nil {
		return fmt.Errorf("writing %s: %w", opts.out, err)
	}
	log.Info("mastered output written", logger.String("path", opts.out))
	return nil
}
