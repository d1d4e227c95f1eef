// Package execpolicy implements C10's execution-provider probe: at process
// start, decide whether inference sessions run on CPU or an accelerator and
// memoize the decision process-wide.
package execpolicy

import (
	"log/slog"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// Preference is the configured execution-provider preference.
type Preference string

const (
	PreferenceAuto Preference = "auto"
	PreferenceCPU  Preference = "cpu"
	PreferenceGPU  Preference = "gpu"
)

// Result is the resolved execution-provider decision.
type Result struct {
	Provider      string // "cpu" or "gpu"
	UsingGPU      bool
	FallbackToCPU bool
}

var (
	envOnce sync.Once
	envErr  error
)

func ensureEnvironment() error {
	envOnce.Do(func() {
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

var (
	once   sync.Once
	result *Result
	resErr error
)

// Resolve probes for an accelerator on first call and memoizes the outcome;
// later calls with any arguments return the same cached result. preference=gpu
// with no accelerator available is fatal; preference=cpu with an accelerator
// available still selects cpu and only logs a warning.
func Resolve(preference Preference, gpuDeviceID int) (*Result, error) {
	once.Do(func() {
		result, resErr = resolve(preference, gpuDeviceID, probeAccelerator)
	})
	return result, resErr
}

func resolve(preference Preference, gpuDeviceID int, probe func(int) bool) (*Result, error) {
	available := probe(gpuDeviceID)

	switch preference {
	case PreferenceGPU:
		if !available {
			return nil, ragerr.AcceleratorUnavailable("ERR_EXEC_GPU_UNAVAILABLE",
				"execution_provider_preference=gpu but no accelerator is available", true, nil)
		}
		return &Result{Provider: "gpu", UsingGPU: true}, nil
	case PreferenceCPU:
		if available {
			slog.Warn("execution_provider_accelerator_unused",
				slog.String("preference", string(preference)),
				slog.Int("gpu_device_id", gpuDeviceID))
		}
		return &Result{Provider: "cpu", UsingGPU: false}, nil
	default: // auto
		if available {
			return &Result{Provider: "gpu", UsingGPU: true}, nil
		}
		return &Result{Provider: "cpu", UsingGPU: false, FallbackToCPU: true}, nil
	}
}

// probeAccelerator attempts a minimal CUDA execution-provider session
// initialization. Any failure (missing CUDA provider library, no device)
// is treated as "not available" rather than an error: absence of hardware is
// an expected outcome, not a fault.
func probeAccelerator(gpuDeviceID int) bool {
	if err := ensureEnvironment(); err != nil {
		return false
	}

	so, err := ort.NewSessionOptions()
	if err != nil {
		return false
	}
	defer so.Destroy()

	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return false
	}
	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(gpuDeviceID)}); err != nil {
		return false
	}

	if err := so.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return false
	}
	return true
}
