// Package detection wraps a TensorFlow Lite YOLO model for threat detection
// on camera frames.
package detection

import (
	"bufio"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/go-tflite"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/errors"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
	"github.com/victorakor/mall-surveillance-system/internal/observability"
)

// Detector runs object detection on JPEG frames. Invoke is serialized with a
// mutex because a TFLite interpreter is not safe for concurrent use.
type Detector struct {
	settings    *conf.Settings
	model       *tflite.Model
	interpreter *tflite.Interpreter
	labels      []string
	mu          sync.Mutex
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// SetMetrics attaches the metrics collector, nil disables instrumentation.
func (d *Detector) SetMetrics(m *observability.Metrics) {
	d.metrics = m
}

// New loads the model and labels configured in settings and prepares an
// interpreter for inference.
func New(settings *conf.Settings) (*Detector, error) {
	modelPath := settings.Detector.ModelPath
	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryModelLoad).
			Context("model_path", modelPath).
			Build()
	}

	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, errors.Newf("cannot load model from path: %s", modelPath).
			Component("detection").
			Category(errors.CategoryModelLoad).
			Build()
	}

	threads := settings.Detector.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, userData interface{}) {
		logging.Error("tflite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.Newf("cannot create tflite interpreter").
			Component("detection").
			Category(errors.CategoryModelInit).
			Build()
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("tensor allocation failed").
			Component("detection").
			Category(errors.CategoryModelInit).
			Build()
	}

	labels, err := loadLabels(settings.Detector.LabelPath)
	if err != nil {
		interpreter.Delete()
		model.Delete()
		return nil, err
	}

	d := &Detector{
		settings:    settings,
		model:       model,
		interpreter: interpreter,
		labels:      labels,
		logger:      logging.ForService("detection"),
	}

	if d.logger != nil {
		d.logger.Info("Detector initialized",
			"model", modelPath,
			"labels", len(labels),
			"input_size", settings.Detector.InputSize,
			"threads", threads,
		)
	}

	return d, nil
}

// loadLabels reads class labels, one per line.
func loadLabels(labelPath string) ([]string, error) {
	file, err := os.Open(labelPath)
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryLabelLoad).
			Context("label_path", labelPath).
			Build()
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryLabelLoad).
			Context("label_path", labelPath).
			Build()
	}
	return labels, nil
}

// DetectFrame runs detection on a JPEG frame and returns the detected
// objects, the frame threat level and an annotated JPEG when anything was
// found.
func (d *Detector) DetectFrame(frame []byte) (*FrameResult, error) {
	img, err := decodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	size := d.settings.Detector.InputSize
	input, lb := prepareInput(img, size)

	start := time.Now()
	output, err := d.invoke(input)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.metrics.ObserveInference(elapsed.Seconds())

	numClasses := len(d.labels)
	numBoxes := len(output) / (4 + numClasses)
	candidates := decodeOutput(output, numClasses, numBoxes, d.settings.Detector.Threshold)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		x1, y1 := lb.ToSource(c.cx-c.w/2, c.cy-c.h/2)
		x2, y2 := lb.ToSource(c.cx+c.w/2, c.cy+c.h/2)
		label := NormalizeLabel(d.labels[c.classIndex])
		results = append(results, Result{
			Label:       label,
			Confidence:  c.confidence,
			Box:         Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
			ThreatLevel: ThreatForLabel(label),
		})
	}
	results = nonMaxSuppression(results, d.settings.Detector.IoU)

	fr := &FrameResult{
		Results:     results,
		ThreatLevel: ArbitrateThreat(results),
	}

	if len(results) > 0 {
		annotated, err := Annotate(img, results)
		if err != nil {
			// annotation failure is not fatal, the detections still stand
			if d.logger != nil {
				d.logger.Warn("Frame annotation failed", "error", err)
			}
		} else {
			fr.Annotated = annotated
		}
	}

	if d.settings.Debug && d.logger != nil {
		d.logger.Debug("Frame processed",
			"detections", len(results),
			"threat_level", fr.ThreatLevel,
			"inference_ms", elapsed.Milliseconds(),
		)
	}

	return fr, nil
}

// invoke copies the input into the interpreter, runs inference and returns a
// copy of the output tensor.
func (d *Detector) invoke(input []float32) ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	inputTensor := d.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("detection").
			Category(errors.CategoryInference).
			Build()
	}
	copy(inputTensor.Float32s(), input)

	if status := d.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tflite inference failed").
			Component("detection").
			Category(errors.CategoryInference).
			Build()
	}

	outputTensor := d.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component("detection").
			Category(errors.CategoryInference).
			Build()
	}

	raw := outputTensor.Float32s()
	output := make([]float32, len(raw))
	copy(output, raw)
	return output, nil
}

// Labels returns the raw model labels.
func (d *Detector) Labels() []string {
	return d.labels
}

// Close releases interpreter and model resources.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.interpreter != nil {
		d.interpreter.Delete()
		d.interpreter = nil
	}
	if d.model != nil {
		d.model.Delete()
		d.model = nil
	}
}
