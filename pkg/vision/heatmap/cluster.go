package heatmap

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ClusterMode 聚类方式
type ClusterMode string

const (
	// ClusterGreedy 单遍贪心聚类，点归入第一个相邻的簇，簇之间不再合并
	ClusterGreedy ClusterMode = "greedy"
	// ClusterConnected 连通分量聚类，相邻关系可传递，后发现相邻的簇会合并
	ClusterConnected ClusterMode = "connected"
)

// Cluster 一组被认为属于同一个目标的候选点
type Cluster []Point

// Boundary 根据模板尺寸和比例计算邻近范围
func Boundary(template Size, scale float64) Size {
	return Size{W: int(float64(template.W) * scale), H: int(float64(template.H) * scale)}
}

// Overlapping 判断两点在 x、y 方向上是否都在 boundary 范围内
//
//	Overlapping(Point{5, 5}, Point{7, 6}, Size{3, 3}) == true
//	Overlapping(Point{5, 5}, Point{9, 9}, Size{3, 3}) == false
func Overlapping(p1, p2 Point, boundary Size) bool {
	return absInt(p1.X-p2.X) <= boundary.W && absInt(p1.Y-p2.Y) <= boundary.H
}

// ClusterPoint 把点加入第一个包含相邻点的簇，没有则新建一个簇
//
//	ClusterPoint({2,4}, [], {10,10})               -> [[{2,4}]]
//	ClusterPoint({5,6}, [[{2,4}]], {10,10})         -> [[{2,4} {5,6}]]
//	ClusterPoint({20,20}, [[{2,4} {5,6}]], {10,10}) -> [[{2,4} {5,6}] [{20,20}]]
func ClusterPoint(point Point, clusters []Cluster, boundary Size) []Cluster {
	for i, cluster := range clusters {
		for _, p := range cluster {
			if Overlapping(point, p, boundary) {
				clusters[i] = append(clusters[i], point)
				return clusters
			}
		}
	}
	return append(clusters, Cluster{point})
}

// Greedy 按输入顺序逐点聚类，结果依赖点的顺序
func Greedy(points []Point, boundary Size) []Cluster {
	var clusters []Cluster
	for _, p := range points {
		clusters = ClusterPoint(p, clusters, boundary)
	}
	return clusters
}

// Connected 按邻近关系的连通分量聚类
// 簇内点保持输入顺序，簇按其最早出现的点排序
func Connected(points []Point, boundary Size) []Cluster {
	if len(points) == 0 {
		return nil
	}

	g := simple.NewUndirectedGraph()
	for i := range points {
		g.AddNode(simple.Node(i))
	}
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			if Overlapping(points[i], points[j], boundary) {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	components := topo.ConnectedComponents(g)
	indexed := make([][]int, 0, len(components))
	for _, comp := range components {
		ids := make([]int, len(comp))
		for k, n := range comp {
			ids[k] = int(n.ID())
		}
		sort.Ints(ids)
		indexed = append(indexed, ids)
	}
	sort.Slice(indexed, func(a, b int) bool { return indexed[a][0] < indexed[b][0] })

	clusters := make([]Cluster, len(indexed))
	for i, ids := range indexed {
		cluster := make(Cluster, len(ids))
		for k, id := range ids {
			cluster[k] = points[id]
		}
		clusters[i] = cluster
	}
	return clusters
}

// Group 按指定方式聚类，未知方式按贪心处理
func Group(points []Point, boundary Size, mode ClusterMode) []Cluster {
	if mode == ClusterConnected {
		return Connected(points, boundary)
	}
	return Greedy(points, boundary)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
