package utilities

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out time-ordered numeric ids. Newer ids always compare
// greater, which is what cursor pagination over comments relies on.
type IDGenerator interface {
	NextID() int64
}

// SnowflakeGenerator wraps a snowflake node.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator builds a generator for the given node id (0-1023).
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &SnowflakeGenerator{node: node}, nil
}

func (g *SnowflakeGenerator) NextID() int64 {
	return g.node.Generate().Int64()
}

// SequenceGenerator is a deterministic IDGenerator used by tests and tooling.
type SequenceGenerator struct {
	mu   sync.Mutex
	next int64
}

func NewSequenceGenerator(start int64) *SequenceGenerator {
	return &SequenceGenerator{next: start}
}

func (g *SequenceGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	return id
}
