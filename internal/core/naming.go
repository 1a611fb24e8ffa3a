package core

import (
	"fmt"
	"strings"
	"unicode"
)

// MetalQualifier is the suffix every bare-metal instance type carries.
// It is stripped when instance types are turned into ids and keys.
const MetalQualifier = ".metal"

// InstanceType is a hardware class, e.g. "m5d.metal".
type InstanceType string

// KernelVersion is an OS kernel version, e.g. "5.10".
type KernelVersion string

// RandomnessSource is the rng implementation the benchmark exercises.
type RandomnessSource string

// RequestSize is the number of random bytes per benchmark request.
type RequestSize int

const (
	OSRng     RandomnessSource = "os-rng"
	ThreadRng RandomnessSource = "thread-rng"
)

// RandomnessSources and RequestSizes are expanded in this order for every
// (instance, kernel) pair: source outer, size inner.
var (
	RandomnessSources = []RandomnessSource{OSRng, ThreadRng}
	RequestSizes      = []RequestSize{64, 512, 1024}
)

// Validate reports whether i can be used to derive ids.
func (i InstanceType) Validate() error {
	s := string(i)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrMalformedInstance)
	case strings.IndexFunc(s, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: %q contains whitespace", ErrMalformedInstance, s)
	case !strings.HasSuffix(s, MetalQualifier):
		return fmt.Errorf("%w: %q lacks the %q qualifier", ErrMalformedInstance, s, MetalQualifier)
	case s == MetalQualifier:
		return fmt.Errorf("%w: %q has no hardware class", ErrMalformedInstance, s)
	}
	return nil
}

func (k KernelVersion) Validate() error {
	s := string(k)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrMalformedKernel)
	case strings.IndexFunc(s, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: %q contains whitespace", ErrMalformedKernel, s)
	}
	return nil
}

// NormalizeInstance strips the bare-metal qualifier: "m5d.metal" -> "m5d".
func NormalizeInstance(i InstanceType) string {
	return strings.TrimSuffix(string(i), MetalQualifier)
}

// NormalizeKernel replaces dots so the version is usable in keys: "4.14" -> "4_14".
func NormalizeKernel(k KernelVersion) string {
	return strings.ReplaceAll(string(k), ".", "_")
}

func BuildStepID(i InstanceType) string {
	return "build_" + NormalizeInstance(i)
}

func TestGroupID(i InstanceType, k KernelVersion) string {
	return fmt.Sprintf("run_%s_%s", NormalizeInstance(i), NormalizeKernel(k))
}

func TestStepKey(i InstanceType, k KernelVersion, size RequestSize, rng RandomnessSource) string {
	return fmt.Sprintf("%s_%s_%d_%s", NormalizeInstance(i), NormalizeKernel(k), size, rng)
}

// ResultFile is the stats file a benchmark step writes and publishes.
// It keeps the raw instance and kernel strings.
func ResultFile(i InstanceType, k KernelVersion, size RequestSize, rng RandomnessSource) string {
	return fmt.Sprintf("results_%s_%s_%d_%s.txt", i, k, size, rng)
}

// ArtifactName is the per-instance name the build step publishes its binary under.
func ArtifactName(binary string, i InstanceType) string {
	return binary + "-" + string(i)
}
