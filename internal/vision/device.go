package vision

import (
	"os"
	"runtime"
)

// SelectDevice picks the compute device for the backends: Apple silicon GPU
// first, then an NVIDIA accelerator, else CPU. The choice is made once at
// startup and exposed read-only (in ping responses); it is never
// re-evaluated after the backends load.
func SelectDevice() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "mps"
	}
	if hasCUDA() {
		return "cuda"
	}
	return "cpu"
}

func hasCUDA() bool {
	if os.Getenv("CUDA_VISIBLE_DEVICES") != "" {
		return true
	}
	_, err := os.Stat("/dev/nvidia0")
	return err == nil
}
