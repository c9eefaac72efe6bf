//go:build !darwin

package permissions

// HasScreenRecording always reports true; only macOS gates screen capture.
func HasScreenRecording() bool { return true }

// RequestScreenRecording always reports true.
func RequestScreenRecording() bool { return true }
