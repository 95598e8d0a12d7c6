package vision

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"face-swap/tools"
)

const (
	detectionSize = 640
	confThreshold = 0.5
	nmsThreshold  = 0.4

	downloadTimeout = 5 * time.Minute
)

// asset is one pretrained weight file with an ordered list of mirrors to
// fetch it from when it is missing locally.
type asset struct {
	name    string
	mirrors []string
}

var modelAssets = []asset{
	{
		name: "det_10g.onnx",
		mirrors: []string{
			"https://github.com/facefusion/facefusion-assets/releases/download/models/det_10g.onnx",
			"https://huggingface.co/immich-app/buffalo_l/resolve/main/det_10g.onnx",
		},
	},
	{
		name: "w600k_r50.onnx",
		mirrors: []string{
			"https://github.com/facefusion/facefusion-assets/releases/download/models/w600k_r50.onnx",
			"https://huggingface.co/immich-app/buffalo_l/resolve/main/w600k_r50.onnx",
		},
	},
	{
		name: "inswapper_128.onnx",
		mirrors: []string{
			"https://github.com/facefusion/facefusion-assets/releases/download/models/inswapper_128.onnx",
			"https://huggingface.co/ezioruan/inswapper_128.onnx/resolve/main/inswapper_128.onnx",
			"https://huggingface.co/CountFloyd/deepfake/resolve/main/inswapper_128.onnx",
		},
	},
	{
		name: "inswapper_128_emap.bin",
		mirrors: []string{
			"https://huggingface.co/datasets/OwlMaster/gg2/resolve/main/emap.bin",
		},
	},
}

// Models holds the two model handles loaded once at startup. Both are
// read-only for the process lifetime.
type Models struct {
	Analyzer FaceAnalyzer
	Swapper  FaceSwapper
}

// Bootstrap obtains the face analysis and face swap capabilities: it makes
// sure every weight asset exists under modelDir (downloading missing ones
// from their mirrors, first success wins) and loads the model sessions.
// On failure the caller keeps running unhealthy instead of crash-looping.
func Bootstrap(modelDir string) (*Models, error) {
	tools.CreateFolderIfNotExist(modelDir)

	client := &http.Client{Timeout: downloadTimeout}
	for _, a := range modelAssets {
		if err := ensureAsset(client, modelDir, a); err != nil {
			return nil, fmt.Errorf("model bootstrap failed: %w", err)
		}
	}

	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("model bootstrap failed: %w", err)
	}

	analyzer, err := NewSCRFD(filepath.Join(modelDir, "det_10g.onnx"),
		detectionSize, confThreshold, nmsThreshold)
	if err != nil {
		return nil, fmt.Errorf("model bootstrap failed: %w", err)
	}

	swapper, err := NewSwapper(
		filepath.Join(modelDir, "w600k_r50.onnx"),
		filepath.Join(modelDir, "inswapper_128.onnx"),
		filepath.Join(modelDir, "inswapper_128_emap.bin"),
	)
	if err != nil {
		analyzer.Close()
		return nil, fmt.Errorf("model bootstrap failed: %w", err)
	}

	return &Models{Analyzer: analyzer, Swapper: swapper}, nil
}

// Close releases both model handles and shuts the runtime down.
func (m *Models) Close() error {
	var firstErr error

	if m.Analyzer != nil {
		if err := m.Analyzer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.Swapper != nil {
		if err := m.Swapper.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := shutdownRuntime(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// ensureAsset downloads the asset when it is not already cached. Mirrors are
// tried in order; the asset is written via a temp file so a partial download
// never poisons the cache.
func ensureAsset(client *http.Client, modelDir string, a asset) error {
	path := filepath.Join(modelDir, a.name)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return nil
	}

	log.Printf("downloading model asset %s", a.name)

	var lastErr error
	for _, mirror := range a.mirrors {
		log.Printf("trying: %s", mirror)

		if err := downloadFile(client, mirror, path); err != nil {
			log.Printf("failed to download from %s: %v", mirror, err)
			lastErr = err
			continue
		}

		log.Printf("model asset %s downloaded successfully", a.name)
		return nil
	}

	return fmt.Errorf("failed to download %s from all mirrors: %w", a.name, lastErr)
}

func downloadFile(client *http.Client, url, path string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned status: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".download-*")
	if err != nil {
		return err
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}
