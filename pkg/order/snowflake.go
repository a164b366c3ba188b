// 文件: pkg/order/snowflake.go
// 雪花算法 ID 生成器 (订单/流水/通知的主键)
// 使用开源库: github.com/bwmarrin/snowflake

package order

import (
	"github.com/bwmarrin/snowflake"
)

// IDGen 主键生成器，由宿主创建一次后显式传递
type IDGen struct {
	node *snowflake.Node
}

// NewIDGen nodeID: 节点ID (0-1023)
func NewIDGen(nodeID int64) (*IDGen, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &IDGen{node: node}, nil
}

// Next 生成一个新 ID (并发安全)
func (g *IDGen) Next() int64 {
	return g.node.Generate().Int64()
}
