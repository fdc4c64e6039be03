// Package snowflake 生成存档快照 id：时间有序，可反解出生成时刻。
package snowflake

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// 2024-01-01 00:00:00 UTC，毫秒
	epochMilli int64 = 1704067200000

	nodeBits uint8 = 10
	seqBits  uint8 = 12

	maxNodeID int64 = -1 ^ (-1 << nodeBits)
	maxSeq    int64 = -1 ^ (-1 << seqBits)

	nodeShift = seqBits
	timeShift = nodeBits + seqBits
)

// IDGenerator 仓储只依赖这个接口，测试里可以换成固定序列。
type IDGenerator interface {
	NextID() int64
}

type Node struct {
	mu     sync.Mutex
	nodeID int64
	lastTS int64
	seq    int64
	now    func() int64
}

func NewNode(nodeID int64) (*Node, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("snowflake node id out of range: %d", nodeID)
	}
	return &Node{nodeID: nodeID, now: func() int64 { return time.Now().UnixMilli() }}, nil
}

func (n *Node) NextID() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ts := n.now()
	if ts < n.lastTS {
		// 时钟回拨不回退
		ts = n.lastTS
	}
	if ts == n.lastTS {
		n.seq = (n.seq + 1) & maxSeq
		if n.seq == 0 {
			for ts <= n.lastTS {
				ts = n.now()
			}
		}
	} else {
		n.seq = 0
	}
	n.lastTS = ts
	return ((ts - epochMilli) << timeShift) | (n.nodeID << nodeShift) | n.seq
}

// Time 反解 id 的生成时刻。
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timeShift) + epochMilli)
}

var (
	defaultOnce sync.Once
	defaultNode *Node
	defaultErr  error
)

// Default 返回进程级节点，node id 取自 LEVELVAULT_NODE_ID（默认 1）。
func Default() (*Node, error) {
	defaultOnce.Do(func() {
		nodeID := int64(1)
		if raw := strings.TrimSpace(os.Getenv("LEVELVAULT_NODE_ID")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				defaultErr = fmt.Errorf("invalid LEVELVAULT_NODE_ID: %w", err)
				return
			}
			nodeID = parsed
		}
		defaultNode, defaultErr = NewNode(nodeID)
	})
	return defaultNode, defaultErr
}
