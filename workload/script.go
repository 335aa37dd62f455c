// Package workload replays scripted allocation traffic against a heap.
package workload

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/QuangTung97/bestfit/allocator"
)

// Op ...
type Op string

const (
	OpAlloc Op = "alloc"
	OpFree  Op = "free"
	OpTouch Op = "touch"
)

var (
	// ErrUnknownOp is returned for a step whose op is not alloc, free or touch.
	ErrUnknownOp = errors.New("workload: unknown op")

	// ErrUnknownID is returned when free or touch names an id that is not live.
	ErrUnknownID = errors.New("workload: unknown id")

	// ErrDuplicateID is returned when alloc reuses an id that is still live.
	ErrDuplicateID = errors.New("workload: duplicate id")
)

// Step ...
type Step struct {
	Op   Op     `yaml:"op"`
	ID   string `yaml:"id"`
	Size uint32 `yaml:"size,omitempty"`
}

// Script ...
type Script struct {
	Name   string           `yaml:"name"`
	Config allocator.Config `yaml:"config"`

	// Evict frees the least recently used allocation and retries when an
	// alloc step runs out of space.
	Evict bool `yaml:"evict"`

	// Check validates the heap after every step.
	Check bool `yaml:"check"`

	// MaxLive caps the number of live allocations, 0 means no cap. With
	// Evict set an alloc over the cap evicts the oldest allocation first.
	MaxLive uint32 `yaml:"max_live"`

	Steps []Step `yaml:"steps"`
}

// Parse decodes a YAML script. Config fields left out keep their defaults.
func Parse(data []byte) (Script, error) {
	s := Script{Config: allocator.DefaultConfig()}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, errors.Wrap(err, "workload: parse script")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpAlloc, OpFree, OpTouch:
		default:
			return Script{}, errors.Wrapf(ErrUnknownOp, "step %d: %q", i, string(step.Op))
		}
	}
	return s, nil
}

// Load reads and parses the script at path.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, errors.Wrapf(err, "workload: read %s", path)
	}
	return Parse(data)
}
