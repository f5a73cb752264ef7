// Package inference - Model deserialization and forward inference over ONNX
// Runtime.
package inference

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// SharedLibPath returns the default ONNX Runtime shared library location for
// the current platform.
func SharedLibPath() string {
	if runtime.GOOS == "windows" {
		return "third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		return "third_party/libonnxruntime.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "third_party/onnxruntime_arm64.so"
	}
	return "third_party/onnxruntime.so"
}

// InitializeRuntime loads the native ONNX Runtime library and prepares its
// environment. Required once per process before any model load; subsequent
// calls return the first outcome. An empty libraryPath falls back to the
// platform default.
func InitializeRuntime(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = SharedLibPath()
		}
		ort.SetSharedLibraryPath(libraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = errors.Wrapf(err, "initializing ONNX Runtime from %s", libraryPath)
		}
	})
	return initErr
}
