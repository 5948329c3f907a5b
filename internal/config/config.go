// Package config provides configuration helpers for go-facefilter commands.
package config

import "os"

// Defaults used when the environment does not override them.
const (
	DefaultPort         = "8090"
	DefaultCameraDevice = "0"
	DefaultYuNetModel   = "models/face_detection_yunet.onnx"
	DefaultFaceMesh     = "scripts/facemesh_service.py"
	DefaultLogLevel     = "info"
	DefaultDetector     = "facemesh"
)

// Port returns the dashboard port from FACEFILTER_PORT or the default.
func Port() string {
	return envOr("FACEFILTER_PORT", DefaultPort)
}

// CameraDevice returns the capture device from CAMERA_DEVICE: an index,
// a device path or stream URL, or "pattern" for the synthetic source.
func CameraDevice() string {
	return envOr("CAMERA_DEVICE", DefaultCameraDevice)
}

// YuNetModel returns the ONNX model path for the YuNet detector.
func YuNetModel() string {
	return envOr("YUNET_MODEL", DefaultYuNetModel)
}

// FaceMeshScript returns the path of the MediaPipe FaceMesh service script.
func FaceMeshScript() string {
	return envOr("FACEMESH_SCRIPT", DefaultFaceMesh)
}

// Detector returns the detector backend name ("facemesh" or "yunet").
func Detector() string {
	return envOr("FACEFILTER_DETECTOR", DefaultDetector)
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel() string {
	return envOr("LOG_LEVEL", DefaultLogLevel)
}

// FilterDir returns an optional directory of custom filter definitions.
// Empty means only the built-in catalog is used.
func FilterDir() string {
	return os.Getenv("FILTER_DIR")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
