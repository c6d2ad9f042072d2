// Package superpoint extracts keypoints and descriptors with a quantized SuperPoint network. It is
// a drop-in replacement for a classical multiscale extractor such as ORB: the network runs at a
// single resolution, but the scale metadata and an image pyramid are still provided.
package superpoint

import (
	"context"
	"image"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints/descriptors"
)

// Features are the keypoints found in one frame with their descriptors, row i describing
// keypoint i.
type Features struct {
	KeyPoints   keypoints.KeyPoints
	Descriptors descriptors.Descriptors
}

// Len returns the number of keypoints.
func (f *Features) Len() int {
	return len(f.KeyPoints)
}

func emptyFeatures() *Features {
	return &Features{KeyPoints: keypoints.KeyPoints{}, Descriptors: descriptors.Descriptors{}}
}

type options struct {
	runtime inference.Runtime
	clock   clock.Clock
}

// Option customizes NewExtractor.
type Option func(*options)

// WithRuntime loads the model through rt instead of TensorFlow Lite.
func WithRuntime(rt inference.Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

// WithClock times stages with clk.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// Extractor runs the SuperPoint network on frames. Calls to Extract are serialized.
type Extractor struct {
	cfg      Config
	logger   logging.Logger
	interp   inference.Interpreter
	contract ModelContract
	runner   *runner
	scales   keypoints.ScalePyramid
	metrics  *Metrics

	mu      sync.Mutex
	pyramid *keypoints.ImagePyramid

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewExtractor loads the model described by cfg and resolves its tensors. Any failure is returned
// and no extractor is built.
func NewExtractor(ctx context.Context, cfg *Config, logger logging.Logger, opts ...Option) (*Extractor, error) {
	ctx, span := trace.StartSpan(ctx, "superpoint::NewExtractor")
	defer span.End()

	conf := *cfg
	conf.fillDefaults()
	if err := conf.Validate("superpoint"); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runtime == nil {
		rt, err := inference.NewTFLiteRuntime(logger)
		if err != nil {
			return nil, err
		}
		o.runtime = rt
	}

	interp, err := o.runtime.Load(ctx, conf.ModelPath, inference.LoadOptions{
		NumThreads: conf.NumThreads,
		Delegate:   conf.Delegate,
		DevicePath: conf.DevicePath,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load superpoint model %q", conf.ModelPath)
	}
	contract, err := loadContract(interp, logger.Sublogger("contract"))
	if err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "unusable superpoint model %q", conf.ModelPath), interp.Close())
	}

	e := &Extractor{
		cfg:      conf,
		logger:   logger,
		interp:   interp,
		contract: contract,
		runner:   &runner{interp: interp, contract: contract},
		scales:   keypoints.ComputeScalePyramid(conf.NLevels, conf.ScaleFactor),
		metrics:  NewMetrics(o.clock),
	}
	logger.Infow("superpoint extractor ready",
		"model", conf.ModelPath,
		"backend", interp.Backend(),
		"input", shapeString([]int{contract.InputHeight, contract.InputWidth, contract.InputChannels}),
		"n_features", conf.NFeatures,
		"nms_radius", conf.NMSRadius,
		"threshold", conf.Threshold,
	)
	return e, nil
}

// Extract finds keypoints in img and describes them. mask, when not nil, is in img coordinates
// and keypoints on zero mask pixels are dropped. A failed frame returns empty features with the
// error; the extractor remains usable.
func (e *Extractor) Extract(ctx context.Context, img image.Image, mask *image.Gray) (*Features, error) {
	ctx, span := trace.StartSpan(ctx, "superpoint::Extractor::Extract")
	defer span.End()

	if e.closed.Load() {
		return emptyFeatures(), ErrClosed
	}
	if img == nil || img.Bounds().Empty() {
		return emptyFeatures(), ErrEmptyImage
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Close may have released the interpreter while this call waited for the lock.
	if e.closed.Load() {
		return emptyFeatures(), ErrClosed
	}

	if !e.cfg.SkipPyramid {
		e.pyramid = keypoints.BuildImagePyramid(img, e.scales)
	}

	start := e.metrics.Now()
	prepared := Prepare(img, e.contract.InputWidth, e.contract.InputHeight, e.contract.InputChannels)
	preprocessed := e.metrics.Now()

	raw, err := e.runner.infer(ctx, prepared)
	if err != nil {
		return emptyFeatures(), err
	}
	inferred := e.metrics.Now()

	features := e.postprocess(raw, img.Bounds().Size(), mask)
	done := e.metrics.Now()

	times := FrameTimes{
		Preprocess:  preprocessed.Sub(start),
		Inference:   inferred.Sub(preprocessed),
		Postprocess: done.Sub(inferred),
	}
	frame := e.metrics.Record(times, features.Len())
	if e.cfg.LogEvery > 0 && frame%int64(e.cfg.LogEvery) == 0 {
		e.logger.Infow("superpoint frame",
			"frame", frame,
			"keypoints", features.Len(),
			"preprocess", times.Preprocess,
			"inference", times.Inference,
			"postprocess", times.Postprocess,
			"total", times.Total(),
		)
	}
	return features, nil
}

func (e *Extractor) postprocess(raw *RawTensors, imageSize image.Point, mask *image.Gray) *Features {
	grid := raw.ScoreGrid()
	candidates := Decode(grid, e.cfg.NMSRadius, e.cfg.Threshold)
	kps := Remap(candidates, imageSize, image.Point{grid.Width, grid.Height})
	kps = ApplyMask(kps, mask, imageSize)
	kps = RetainBest(kps, e.cfg.NFeatures)
	descs := SampleDescriptors(kps, raw.DescriptorData(),
		e.contract.Descriptor.Height, e.contract.Descriptor.Width, imageSize)
	return &Features{KeyPoints: kps, Descriptors: descs}
}

// Detect has the call shape of a classical feature extractor. Errors are logged and reported as
// zero keypoints.
func (e *Extractor) Detect(ctx context.Context, img image.Image, mask *image.Gray) (keypoints.KeyPoints, descriptors.Descriptors, int) {
	features, err := e.Extract(ctx, img, mask)
	if err != nil && !errors.Is(err, ErrEmptyImage) {
		e.logger.Errorw("superpoint extraction failed", "error", err)
	}
	return features.KeyPoints, features.Descriptors, features.Len()
}

// Contract returns what was learned about the model at load time.
func (e *Extractor) Contract() ModelContract {
	return e.contract
}

// Backend returns the execution backend the model runs on.
func (e *Extractor) Backend() inference.BackendKind {
	return e.interp.Backend()
}

// Metrics returns the extractor's accumulated timings.
func (e *Extractor) Metrics() *Metrics {
	return e.metrics
}

// Pyramid returns the image pyramid of the last frame, or nil before the first frame or when
// pyramids are disabled.
func (e *Extractor) Pyramid() *keypoints.ImagePyramid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pyramid
}

// Levels returns the number of scale levels.
func (e *Extractor) Levels() int {
	return e.scales.NumLevels()
}

// ScaleFactor returns the ratio between consecutive levels.
func (e *Extractor) ScaleFactor() float64 {
	return e.scales.Ratio
}

// ScaleFactors returns the scale factor of every level.
func (e *Extractor) ScaleFactors() []float64 {
	return e.scales.Factors()
}

// InverseScaleFactors returns the inverse scale factor of every level.
func (e *Extractor) InverseScaleFactors() []float64 {
	return e.scales.InvFactors()
}

// ScaleSigmaSquares returns sigma² of every level.
func (e *Extractor) ScaleSigmaSquares() []float64 {
	return e.scales.SigmaSquares()
}

// InverseScaleSigmaSquares returns 1/sigma² of every level.
func (e *Extractor) InverseScaleSigmaSquares() []float64 {
	return e.scales.InvSigmaSquares()
}

// Close releases the interpreter and logs a timing summary. Later calls return the first result.
func (e *Extractor) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.metrics.Snapshot().Log(e.logger, "superpoint summary")
		e.closeErr = e.interp.Close()
	})
	return e.closeErr
}
