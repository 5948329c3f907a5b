package config

import "testing"

func TestDefaults(t *testing.T) {
	t.Setenv("FACEFILTER_PORT", "")
	t.Setenv("CAMERA_DEVICE", "")
	t.Setenv("FACEFILTER_DETECTOR", "")
	t.Setenv("FACEMESH_SCRIPT", "")

	if got := Port(); got != DefaultPort {
		t.Errorf("Port: got %q, want %q", got, DefaultPort)
	}
	if got := CameraDevice(); got != DefaultCameraDevice {
		t.Errorf("CameraDevice: got %q, want %q", got, DefaultCameraDevice)
	}
	if got := Detector(); got != DefaultDetector {
		t.Errorf("Detector: got %q, want %q", got, DefaultDetector)
	}
	if got := FaceMeshScript(); got != DefaultFaceMesh {
		t.Errorf("FaceMeshScript: got %q, want %q", got, DefaultFaceMesh)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("FACEFILTER_PORT", "9000")
	t.Setenv("CAMERA_DEVICE", "pattern")
	t.Setenv("FILTER_DIR", "/etc/filters")
	t.Setenv("LOG_LEVEL", "debug")

	if got := Port(); got != "9000" {
		t.Errorf("Port: got %q, want 9000", got)
	}
	if got := CameraDevice(); got != "pattern" {
		t.Errorf("CameraDevice: got %q, want pattern", got)
	}
	if got := FilterDir(); got != "/etc/filters" {
		t.Errorf("FilterDir: got %q", got)
	}
	if got := LogLevel(); got != "debug" {
		t.Errorf("LogLevel: got %q, want debug", got)
	}
}
