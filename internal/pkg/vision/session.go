package vision

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortLibraryEnvName optionally points at the onnxruntime shared library.
const ortLibraryEnvName = "FACE_SWAP__ORT_LIBRARY"

var (
	ortInitialized bool
	ortInitMu      sync.Mutex
)

// initRuntime sets up the ONNX Runtime environment. Safe to call repeatedly.
func initRuntime() error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if ortInitialized {
		return nil
	}

	if libPath := os.Getenv(ortLibraryEnvName); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	ortInitialized = true
	return nil
}

// shutdownRuntime tears down the ONNX Runtime environment.
func shutdownRuntime() error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if !ortInitialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	ortInitialized = false
	return nil
}

// session wraps an ONNX Runtime inference session. Run is serialized with a
// mutex: the handle is the only shared resource between concurrent requests
// and the runtime gives no concurrency guarantee we rely on.
type session struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	modelPath   string
	inputNames  []string
	outputNames []string
}

func newSession(modelPath string, inputNames, outputNames []string) (*session, error) {
	if !ortInitialized {
		return nil, fmt.Errorf("ONNX Runtime not initialized")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	s, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", modelPath, err)
	}

	return &session{
		session:     s,
		modelPath:   modelPath,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

func (s *session) run(inputs, outputs []ort.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Run(inputs, outputs)
}

func (s *session) destroy() error {
	return s.session.Destroy()
}

// newEmptyTensor creates a zero-filled output tensor of the given shape.
func newEmptyTensor(shape []int64) (*ort.Tensor[float32], error) {
	size := int64(1)
	for _, d := range shape {
		size *= d
	}
	return ort.NewTensor(ort.NewShape(shape...), make([]float32, size))
}
