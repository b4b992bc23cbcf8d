// Package device resolves the compute target for a training session.
// Placement is static: a target is resolved once at session start and
// never renegotiated mid-run.
package device

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Target names a compute device family.
type Target string

const (
	CPU         Target = "cpu"
	Accelerator Target = "accelerator"
)

// ErrUnsupportedDevice is returned when a target is unknown or not
// available on the host. Use errors.Is to check.
var ErrUnsupportedDevice = errors.New("device: unsupported target")

// Device describes a resolved compute target.
type Device struct {
	Target  Target
	Name    string
	Threads int
	// Vector extensions available on the host, informational only.
	Features []string
}

// Resolve validates a target string and probes the host for it.
// The accelerator target is recognized configuration but no accelerator
// backend ships with this module, so resolving it always fails.
func Resolve(target string) (Device, error) {
	switch Target(strings.ToLower(strings.TrimSpace(target))) {
	case CPU, "":
		return probeCPU(), nil
	case Accelerator:
		return Device{}, fmt.Errorf("%w: no accelerator backend on %s/%s",
			ErrUnsupportedDevice, runtime.GOOS, runtime.GOARCH)
	default:
		return Device{}, fmt.Errorf("%w: %q", ErrUnsupportedDevice, target)
	}
}

func probeCPU() Device {
	var feats []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.SSE42, "sse4.2"},
		{cpuid.AVX, "avx"},
		{cpuid.AVX2, "avx2"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.FMA3, "fma3"},
	} {
		if cpuid.CPU.Supports(f.id) {
			feats = append(feats, f.name)
		}
	}
	name := cpuid.CPU.BrandName
	if name == "" {
		name = runtime.GOARCH
	}
	threads := cpuid.CPU.LogicalCores
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return Device{Target: CPU, Name: name, Threads: threads, Features: feats}
}
