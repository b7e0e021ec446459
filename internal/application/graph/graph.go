// Package graph 提供内存中的关系图上下文检索
// 图从当前关系型快照整体重建（实体/事件/地点为节点，关系/关联为边），
// 不做增量维护：单项目数据量级为数百条，按需重建的成本可以接受。
package graph

import (
	"fmt"
	"strings"

	"storyforge-api/internal/domain/entity"
)

// NodeType 节点类型
type NodeType string

const (
	NodeTypeCodex    NodeType = "codex"
	NodeTypeEvent    NodeType = "event"
	NodeTypeLocation NodeType = "location"
)

// Node 图节点
type Node struct {
	ID          string
	Type        NodeType
	Name        string
	Description string
}

// Edge 图边
type Edge struct {
	SourceID    string
	TargetID    string
	Relation    string
	Description string
}

// Graph 项目关系图
type Graph struct {
	nodes map[string]*Node
	// adjacency 节点 id -> 邻接边下标
	adjacency map[string][]int
	edges     []Edge
}

// New 创建空图
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string][]int),
	}
}

// Build 用关系型快照整体替换图的节点与边集
func (g *Graph) Build(
	items []*entity.CodexItem,
	relationships []*entity.Relationship,
	events []*entity.Event,
	locations []*entity.Location,
	eventConns []*entity.EventConnection,
	locationConns []*entity.LocationConnection,
) {
	g.nodes = make(map[string]*Node)
	g.adjacency = make(map[string][]int)
	g.edges = nil

	for _, item := range items {
		if item == nil {
			continue
		}
		g.addNode(&Node{ID: item.ID, Type: NodeTypeCodex, Name: item.Name, Description: item.Description})
	}
	for _, ev := range events {
		if ev == nil {
			continue
		}
		g.addNode(&Node{ID: ev.ID, Type: NodeTypeEvent, Name: ev.Title, Description: ev.Description})
	}
	for _, loc := range locations {
		if loc == nil {
			continue
		}
		g.addNode(&Node{ID: loc.ID, Type: NodeTypeLocation, Name: loc.Name, Description: loc.Description})
	}

	for _, rel := range relationships {
		if rel == nil {
			continue
		}
		g.addEdge(rel.SourceID, rel.TargetID, rel.RelationType, rel.Description)
	}
	for _, conn := range eventConns {
		if conn == nil {
			continue
		}
		g.addEdge(conn.Event1ID, conn.Event2ID, conn.ConnectionType, conn.Description)
	}
	for _, conn := range locationConns {
		if conn == nil {
			continue
		}
		g.addEdge(conn.Location1ID, conn.Location2ID, conn.ConnectionType, conn.Description)
	}

	// 事件挂接主角与发生地
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.CharacterID != "" {
			g.addEdge(ev.CharacterID, ev.ID, "参与", "")
		}
		if ev.LocationID != "" {
			g.addEdge(ev.ID, ev.LocationID, "发生于", "")
		}
	}
}

func (g *Graph) addNode(n *Node) {
	if n.ID == "" {
		return
	}
	g.nodes[n.ID] = n
}

func (g *Graph) addEdge(sourceID, targetID, relation, description string) {
	if sourceID == "" || targetID == "" {
		return
	}
	if _, ok := g.nodes[sourceID]; !ok {
		return
	}
	if _, ok := g.nodes[targetID]; !ok {
		return
	}
	idx := len(g.edges)
	g.edges = append(g.edges, Edge{SourceID: sourceID, TargetID: targetID, Relation: relation, Description: description})
	g.adjacency[sourceID] = append(g.adjacency[sourceID], idx)
	g.adjacency[targetID] = append(g.adjacency[targetID], idx)
}

// NodeCount 节点数
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount 边数
func (g *Graph) EdgeCount() int { return len(g.edges) }

// ContextFor 将一组名称扩展为局部邻域的文本描述
// 每个名称先做精确匹配，再做双向子串匹配，取第一个命中；
// 对每个命中节点收集 depth 跳以内的边，全局按无序端点对去重后逐行渲染。
// 没有任何名称命中时返回空字符串。
func (g *Graph) ContextFor(names []string, depth int) string {
	if depth < 1 {
		depth = 1
	}

	seen := make(map[[2]string]bool)
	var lines []string

	for _, name := range names {
		nodeID, ok := g.resolve(name)
		if !ok {
			continue
		}
		for _, idx := range g.neighborhoodEdges(nodeID, depth) {
			e := g.edges[idx]
			key := edgeKey(e.SourceID, e.TargetID)
			if seen[key] {
				continue
			}
			seen[key] = true
			lines = append(lines, g.renderEdge(e))
		}
	}

	return strings.Join(lines, "\n")
}

// resolve 名称解析：大小写折叠、去空白，精确优先于子串
func (g *Graph) resolve(name string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return "", false
	}

	for id, node := range g.nodes {
		if strings.ToLower(node.Name) == want {
			return id, true
		}
	}
	for id, node := range g.nodes {
		have := strings.ToLower(node.Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return id, true
		}
	}
	return "", false
}

// neighborhoodEdges 收集 depth 跳以内可达节点的全部关联边（BFS）
func (g *Graph) neighborhoodEdges(startID string, depth int) []int {
	visited := map[string]bool{startID: true}
	frontier := []string{startID}

	var edgeIdxs []int
	edgeSeen := make(map[int]bool)

	for hop := 0; hop < depth; hop++ {
		var next []string
		for _, id := range frontier {
			for _, idx := range g.adjacency[id] {
				if !edgeSeen[idx] {
					edgeSeen[idx] = true
					edgeIdxs = append(edgeIdxs, idx)
				}
				e := g.edges[idx]
				for _, other := range []string{e.SourceID, e.TargetID} {
					if !visited[other] {
						visited[other] = true
						next = append(next, other)
					}
				}
			}
		}
		frontier = next
	}
	return edgeIdxs
}

func (g *Graph) renderEdge(e Edge) string {
	src := g.nodes[e.SourceID]
	dst := g.nodes[e.TargetID]
	line := fmt.Sprintf("%s 是 %s 的%s", src.Name, dst.Name, e.Relation)
	if d := strings.TrimSpace(e.Description); d != "" {
		line += "：" + d
	}
	return line
}

// edgeKey 无序端点对；A-B 与 B-A 视为同一条边
func edgeKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
