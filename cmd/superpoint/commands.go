package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
	"github.com/johnhalbert/vr-project-backup-sub006/rimage"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/superpoint"
)

// configFromContext loads the config file, if any, and applies flag overrides.
func configFromContext(c *cli.Context) (*superpoint.Config, error) {
	cfg := superpoint.NewConfig("")
	if path := c.String(flagConfig); path != "" {
		loaded, err := superpoint.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet(flagModel) {
		cfg.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagDelegate) {
		cfg.Delegate = inference.DelegateMode(c.String(flagDelegate))
	}
	if c.IsSet(flagDevice) {
		cfg.DevicePath = c.String(flagDevice)
	}
	if c.IsSet(flagThreads) {
		cfg.NumThreads = c.Int(flagThreads)
	}
	if c.IsSet(flagFeatures) {
		cfg.NFeatures = c.Int(flagFeatures)
	}
	if c.IsSet(flagThreshold) {
		cfg.Threshold = c.Float64(flagThreshold)
	}
	if c.IsSet(flagRadius) {
		cfg.NMSRadius = c.Float64(flagRadius)
	}
	return cfg, cfg.Validate("superpoint")
}

func newExtractor(c *cli.Context) (*superpoint.Extractor, logging.Logger, error) {
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger("superpoint")
	logger.SetLevel(level)

	cfg, err := configFromContext(c)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := superpoint.NewExtractor(c.Context, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return extractor, logger, nil
}

func loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open image %q", path)
	}
	return img, nil
}

func loadMask(path string) (*image.Gray, error) {
	if path == "" {
		return nil, nil
	}
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	return rimage.MakeGray(img), nil
}

func imageArg(c *cli.Context, idx int) (image.Image, error) {
	if c.NArg() <= idx {
		return nil, errors.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return loadImage(c.Args().Get(idx))
}

func inspectAction(c *cli.Context) (err error) {
	extractor, _, err := newExtractor(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, extractor.Close())
	}()
	_, err = fmt.Fprintln(c.App.Writer, contractTable(extractor.Contract(), extractor.Backend()))
	return err
}

// contractTable renders the resolved tensors of a model.
func contractTable(contract superpoint.ModelContract, backend inference.BackendKind) string {
	t := table.NewWriter()
	t.SetTitle("backend: %s", backend)
	t.AppendHeader(table.Row{"Role", "Index", "Shape (HxWxC)", "Type", "Scale", "Zero Point"})
	t.AppendRow(table.Row{
		"input", 0,
		fmt.Sprintf("%dx%dx%d", contract.InputHeight, contract.InputWidth, contract.InputChannels),
		contract.InputType, contract.InputQuant.Scale, contract.InputZeroPoint,
	})
	for _, out := range []struct {
		role   string
		tensor superpoint.OutputTensor
	}{{"descriptor", contract.Descriptor}, {"score", contract.Score}} {
		t.AppendRow(table.Row{
			out.role, out.tensor.Index,
			fmt.Sprintf("%dx%dx%d", out.tensor.Height, out.tensor.Width, out.tensor.Channels),
			inference.Int8, out.tensor.Quant.Scale, out.tensor.Quant.ZeroPoint,
		})
	}
	return t.Render()
}

type keypointJSON struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Size       float64   `json:"size"`
	Score      float64   `json:"score"`
	Descriptor []float32 `json:"descriptor"`
}

type featuresJSON struct {
	Image     string         `json:"image"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Count     int            `json:"count"`
	KeyPoints []keypointJSON `json:"keypoints"`
}

func newFeaturesJSON(name string, size image.Point, features *superpoint.Features) featuresJSON {
	out := featuresJSON{
		Image:     name,
		Width:     size.X,
		Height:    size.Y,
		Count:     features.Len(),
		KeyPoints: make([]keypointJSON, features.Len()),
	}
	for i, kp := range features.KeyPoints {
		out.KeyPoints[i] = keypointJSON{X: kp.X, Y: kp.Y, Size: kp.Size, Score: kp.Score, Descriptor: features.Descriptors[i]}
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func extractAction(c *cli.Context) (err error) {
	img, err := imageArg(c, 0)
	if err != nil {
		return err
	}
	mask, err := loadMask(c.String(flagMask))
	if err != nil {
		return err
	}
	extractor, logger, err := newExtractor(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, extractor.Close())
	}()

	features, err := extractor.Extract(c.Context, img, mask)
	if err != nil {
		return err
	}
	logger.Infow("extracted features", "image", c.Args().First(), "keypoints", features.Len())

	if plotPath := c.String(flagPlot); plotPath != "" {
		if err := keypoints.PlotKeypoints(img, features.KeyPoints, plotPath); err != nil {
			return err
		}
	}

	w := c.App.Writer
	if outPath := c.String(flagOutput); outPath != "" {
		//nolint:gosec
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		w = f
	}
	return writeJSON(w, newFeaturesJSON(c.Args().First(), img.Bounds().Size(), features))
}

func matchAction(c *cli.Context) (err error) {
	img1, err := imageArg(c, 0)
	if err != nil {
		return err
	}
	img2, err := imageArg(c, 1)
	if err != nil {
		return err
	}
	extractor, logger, err := newExtractor(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, extractor.Close())
	}()

	f1, err := extractor.Extract(c.Context, img1, nil)
	if err != nil {
		return err
	}
	f2, err := extractor.Extract(c.Context, img2, nil)
	if err != nil {
		return err
	}
	cfg := &keypoints.MatchingConfig{DoCrossCheck: c.Bool(flagCrossCheck), MaxDist: c.Float64(flagMaxDist)}
	matches := keypoints.MatchDescriptors(f1.Descriptors, f2.Descriptors, cfg, logger)
	kps1, kps2, err := keypoints.GetMatchingKeyPoints(matches, f1.KeyPoints, f2.KeyPoints)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, matchTable(matches, kps1, kps2, f1.Len(), f2.Len()))
	return err
}

// matchTable renders matches with the keypoint coordinates in both images.
func matchTable(matches []keypoints.DescriptorMatch, kps1, kps2 keypoints.KeyPoints, n1, n2 int) string {
	t := table.NewWriter()
	t.SetTitle("%d matches between %d and %d keypoints", len(matches), n1, n2)
	t.AppendHeader(table.Row{"#", "Image 1", "Image 2", "Distance"})
	for i, m := range matches {
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("(%.1f, %.1f)", kps1[i].X, kps1[i].Y),
			fmt.Sprintf("(%.1f, %.1f)", kps2[i].X, kps2[i].Y),
			fmt.Sprintf("%.4f", m.Distance),
		})
	}
	return t.Render()
}

func benchAction(c *cli.Context) (err error) {
	img, err := imageArg(c, 0)
	if err != nil {
		return err
	}
	frames := c.Int(flagFrames)
	if frames <= 0 {
		return errors.Errorf("--%s must be positive", flagFrames)
	}
	extractor, _, err := newExtractor(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, extractor.Close())
	}()

	latencies, err := runBench(c.Context, extractor, img, frames)
	if err != nil {
		return err
	}
	w := c.App.Writer
	if _, err := fmt.Fprintln(w, metricsTable(extractor.Metrics().Snapshot())); err != nil {
		return err
	}
	if err := histogram.Fprint(w, histogram.Hist(10, latencies), histogram.Linear(40)); err != nil {
		return err
	}
	if path := c.String(flagHistogram); path != "" {
		return saveLatencyPlot(latencies, path)
	}
	return nil
}

// runBench extracts features from img frames times and returns each frame's latency in ms.
func runBench(ctx context.Context, extractor *superpoint.Extractor, img image.Image, frames int) ([]float64, error) {
	latencies := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		start := time.Now()
		if _, err := extractor.Extract(ctx, img, nil); err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		latencies = append(latencies, float64(time.Since(start))/float64(time.Millisecond))
	}
	return latencies, nil
}

// metricsTable renders per-stage averages and latency percentiles.
func metricsTable(snap superpoint.Snapshot) string {
	avg := snap.Average()
	t := table.NewWriter()
	t.SetTitle("%d frames, %d keypoints", snap.Frames, snap.Keypoints)
	t.AppendHeader(table.Row{"Stage", "Average"})
	t.AppendRows([]table.Row{
		{"preprocess", avg.Preprocess},
		{"inference", avg.Inference},
		{"postprocess", avg.Postprocess},
		{"total", avg.Total()},
	})
	t.AppendFooter(table.Row{"p50 / p95", fmt.Sprintf("%.2fms / %.2fms", snap.P50, snap.P95)})
	// footers are upper-cased by default, which would turn the units into MS
	t.Style().Format.Footer = text.FormatDefault
	return t.Render()
}

func saveLatencyPlot(latencies []float64, path string) error {
	p := plot.New()
	p.Title.Text = "SuperPoint frame latency"
	p.X.Label.Text = "ms"
	p.Y.Label.Text = "frames"
	h, err := plotter.NewHist(plotter.Values(latencies), 20)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
