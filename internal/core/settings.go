package core

// Settings holds everything the generator needs besides the matrix itself.
type Settings struct {
	Queue string

	// Toolchain used to build and run the benchmark.
	Image          string
	NativePackages []string
	Binary         string
	BenchScript    string

	BuildGroupName string
	BuildGroupID   string
	BuildTags      Tags
	BuildPriority  *int
	BuildTimeout   int

	// TestGroupMarker is prepended to test group names; the first character
	// of the name is carried into every step label.
	TestGroupMarker string
	TestTags        Tags
	TestPriority    int
	TestTimeout     int

	PostProcessCommand string
	PostProcessLabel   string
}

func DefaultSettings() Settings {
	return Settings{
		Queue:              "default",
		Image:              "rust:1.65-buster",
		NativePackages:     []string{"libclang-dev"},
		Binary:             "entropy-test",
		BenchScript:        "./perf.sh",
		BuildGroupName:     "Build test",
		BuildGroupID:       "build",
		BuildTags:          Tags{{Key: "ag", Value: "4"}},
		BuildTimeout:       30,
		TestTags:           Tags{{Key: "ag", Value: "1"}},
		TestPriority:       0,
		TestTimeout:        30,
		PostProcessCommand: ".buildkite/post-process.sh",
		PostProcessLabel:   "Post process",
	}
}

// Matrix is the input enumeration. Order is significant: it is the
// order groups appear in the output.
type Matrix struct {
	Instances []InstanceType
	Kernels   []KernelVersion
}

func DefaultMatrix() Matrix {
	return Matrix{
		Instances: []InstanceType{"m5d.metal", "m6i.metal", "m6a.metal", "m6gd.metal"},
		Kernels:   []KernelVersion{"4.14", "5.10"},
	}
}

// NewMatrix converts plain strings, as read from config or flags.
func NewMatrix(instances, kernels []string) Matrix {
	m := Matrix{
		Instances: make([]InstanceType, len(instances)),
		Kernels:   make([]KernelVersion, len(kernels)),
	}
	for i, s := range instances {
		m.Instances[i] = InstanceType(s)
	}
	for i, s := range kernels {
		m.Kernels[i] = KernelVersion(s)
	}
	return m
}
