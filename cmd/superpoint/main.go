// Package main is a command line tool to inspect SuperPoint models and run feature extraction on
// image files.
package main

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
)

const (
	flagConfig    = "config"
	flagModel     = "model"
	flagDelegate  = "delegate"
	flagDevice    = "device"
	flagThreads   = "threads"
	flagFeatures  = "features"
	flagThreshold = "threshold"
	flagRadius    = "radius"
	flagLogLevel  = "log-level"

	flagMask       = "mask"
	flagOutput     = "output"
	flagPlot       = "plot"
	flagCrossCheck = "cross-check"
	flagMaxDist    = "max-dist"
	flagFrames     = "frames"
	flagHistogram  = "histogram"
)

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("superpoint").Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "superpoint",
		Usage:     "run SuperPoint keypoint extraction",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load extractor configuration from JSON or YAML `FILE`",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Usage:   "path to the SuperPoint .tflite model, overrides the config",
			},
			&cli.StringFlag{
				Name:  flagDelegate,
				Usage: "delegate policy: auto, edgetpu or none",
			},
			&cli.StringFlag{
				Name:  flagDevice,
				Usage: "Edge TPU device path, e.g. /dev/apex_0",
			},
			&cli.IntFlag{
				Name:  flagThreads,
				Usage: "CPU threads for the non-accelerated path",
			},
			&cli.IntFlag{
				Name:  flagFeatures,
				Usage: "maximum number of keypoints, 0 for no limit",
				Value: -1,
			},
			&cli.Float64Flag{
				Name:  flagThreshold,
				Usage: "keypoint confidence threshold, 0 keeps every positive score",
			},
			&cli.Float64Flag{
				Name:  flagRadius,
				Usage: "non-maximum suppression radius in pixels, 0 disables suppression",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error",
				Value: "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "inspect",
				Usage:  "load a model and print its tensor contract",
				Action: inspectAction,
			},
			{
				Name:      "extract",
				Usage:     "extract keypoints and descriptors from an image",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagMask, Usage: "grayscale mask `FILE`, zero pixels are ignored"},
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "write features as JSON to `FILE` instead of stdout"},
					&cli.StringFlag{Name: flagPlot, Usage: "draw keypoints over the image into PNG `FILE`"},
				},
				Action: extractAction,
			},
			{
				Name:      "match",
				Usage:     "match features between two images",
				ArgsUsage: "<image1> <image2>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagCrossCheck, Usage: "keep only mutual nearest neighbors", Value: true},
					&cli.Float64Flag{Name: flagMaxDist, Usage: "drop matches at or above this descriptor distance", Value: 0.7},
				},
				Action: matchAction,
			},
			{
				Name:      "bench",
				Usage:     "repeatedly extract features from an image and report latency",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagFrames, Aliases: []string{"n"}, Usage: "number of frames", Value: 100},
					&cli.StringFlag{Name: flagHistogram, Usage: "save a latency histogram to PNG `FILE`"},
				},
				Action: benchAction,
			},
		},
	}
}
