// Package heatmap 提供相关度热图上的多目标提取功能
//
// 处理流程:
//   - Peaks: 按最佳得分的比例阈值化热图，得到候选点
//   - Greedy / Connected: 把相邻候选点聚成簇，每个簇代表一个实际目标
//   - Reduce: 每个簇取得分最高的点
//
// 本包只做纯计算，不依赖 OpenCV，热图由调用方（cv 包）填充。
package heatmap

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Point 表示热图 / 源图像中的二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size 表示宽高
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Heatmap 相关度热图，行对应 Y，列对应 X
type Heatmap struct {
	data *mat.Dense
}

// New 创建 w×h 的空热图
func New(w, h int) (*Heatmap, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("热图尺寸无效: %dx%d", w, h)
	}
	return &Heatmap{data: mat.NewDense(h, w, nil)}, nil
}

// Width 热图宽度
func (h *Heatmap) Width() int {
	_, c := h.data.Dims()
	return c
}

// Height 热图高度
func (h *Heatmap) Height() int {
	r, _ := h.data.Dims()
	return r
}

// Size 热图尺寸
func (h *Heatmap) Size() Size {
	return Size{W: h.Width(), H: h.Height()}
}

// At 返回点 p 处的得分
func (h *Heatmap) At(p Point) float64 {
	return h.data.At(p.Y, p.X)
}

// Set 设置 (x, y) 处的得分
func (h *Heatmap) Set(x, y int, v float64) {
	h.data.Set(y, x, v)
}

// Max 返回最大得分及其位置，相同得分取扫描顺序（先行后列）中的第一个
func (h *Heatmap) Max() (float64, Point) {
	rows, cols := h.data.Dims()
	best := h.data.At(0, 0)
	var loc Point
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if v := h.data.At(y, x); v > best {
				best = v
				loc = Point{X: x, Y: y}
			}
		}
	}
	return best, loc
}

// Range 返回最小值和最大值
func (h *Heatmap) Range() (float64, float64) {
	return mat.Min(h.data), mat.Max(h.data)
}

// Stats 返回热图得分的均值和标准差
func (h *Heatmap) Stats() (mean, std float64) {
	rows, cols := h.data.Dims()
	values := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		values = append(values, h.data.RawRowView(y)...)
	}
	return stat.MeanStdDev(values, nil)
}
