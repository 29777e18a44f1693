package cluster

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Shape names a peer-wiring topology for the launched nodes.
type Shape string

const (
	ShapeMesh Shape = "mesh"
	ShapeStar Shape = "star"
	ShapeRing Shape = "ring"
)

// ParseShape validates a topology name
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeMesh, ShapeStar, ShapeRing:
		return Shape(s), nil
	default:
		return "", fmt.Errorf("unknown topology %q (want mesh, star or ring)", s)
	}
}

// peerIndexes returns the nodes that node i dials out to. Nodes are
// launched in index order, so wiring only references peers that may not be
// up yet on ring closure; daemons redial until connected.
func peerIndexes(shape Shape, i, total int) []int {
	if total <= 1 {
		return nil
	}

	switch shape {
	case ShapeStar:
		if i == 0 {
			return nil
		}
		return []int{0}
	case ShapeRing:
		if i == 0 {
			return []int{total - 1}
		}
		return []int{i - 1}
	default: // mesh: dial every earlier node
		peers := make([]int, 0, i)
		for j := 0; j < i; j++ {
			peers = append(peers, j)
		}
		return peers
	}
}

// TopologyFile is an on-disk cluster description.
type TopologyFile struct {
	Shape string `yaml:"shape"`
	Nodes int    `yaml:"nodes"`
	Delay string `yaml:"delay,omitempty"` // duration between node launches
}

// LoadTopologyFile reads and validates a YAML topology description
func LoadTopologyFile(path string) (*TopologyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}

	var tf TopologyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing topology file %s: %w", path, err)
	}

	if _, err := ParseShape(tf.Shape); err != nil {
		return nil, err
	}
	if tf.Nodes < 1 {
		return nil, fmt.Errorf("topology file %s: nodes must be >= 1, got %d", path, tf.Nodes)
	}
	if tf.Delay != "" {
		if _, err := time.ParseDuration(tf.Delay); err != nil {
			return nil, fmt.Errorf("topology file %s: bad delay: %w", path, err)
		}
	}

	return &tf, nil
}

// LaunchDelay returns the parsed inter-node delay, or zero when unset
func (tf *TopologyFile) LaunchDelay() time.Duration {
	if tf.Delay == "" {
		return 0
	}
	d, _ := time.ParseDuration(tf.Delay)
	return d
}
