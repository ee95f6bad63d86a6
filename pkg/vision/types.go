package vision

import (
	"image"

	"github.com/zoeyai/multimatch/pkg/vision/cv"
	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// Version 版本号
const Version = "1.0.0"

// Point 表示二维坐标点
type Point = cv.Point

// Size 表示宽高
type Size = cv.Size

// Rectangle 表示矩形区域（四个角点）
type Rectangle = cv.Rectangle

// MatchResult 单个目标的匹配结果
type MatchResult = cv.MatchResult

// MatchParameters 匹配与确认参数
type MatchParameters = cv.MatchParameters

// Tunables 多目标匹配可调常量
type Tunables = cv.Tunables

// Heatmap 相关度热图
type Heatmap = heatmap.Heatmap

// MatchMethod 模板匹配算法
type MatchMethod = cv.MatchMethod

// ConfirmMethod 结构确认算法
type ConfirmMethod = cv.ConfirmMethod

// ClusterMode 候选点聚类方式
type ClusterMode = heatmap.ClusterMode

const (
	MatchMethodCcorrNormed  = cv.MatchMethodCcorrNormed
	MatchMethodCcoeffNormed = cv.MatchMethodCcoeffNormed
	MatchMethodSqdiffNormed = cv.MatchMethodSqdiffNormed

	ConfirmNormedAbsDiff = cv.ConfirmNormedAbsDiff
	ConfirmAbsDiff       = cv.ConfirmAbsDiff

	ClusterGreedy    = heatmap.ClusterGreedy
	ClusterConnected = heatmap.ClusterConnected
)

// 错误
var (
	ErrPrecondition      = cv.ErrPrecondition
	ErrInvalidParameter  = cv.ErrInvalidParameter
	ErrTooManyCandidates = cv.ErrTooManyCandidates
)

// NewPoint 创建新的 Point
func NewPoint(x, y int) Point {
	return Point{X: x, Y: y}
}

// NewRectangle 从左上角坐标和宽高创建矩形
func NewRectangle(x, y, w, h int) Rectangle {
	return MatchResult{Position: Point{X: x, Y: y}, Size: Size{W: w, H: h}}.Rectangle()
}

// ToImageRect 转换为 image.Rectangle
func ToImageRect(r Rectangle) image.Rectangle {
	return image.Rect(r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// TargetPos 目标位置枚举，用于指定返回匹配结果的哪个位置
type TargetPos int

const (
	// TargetPosMid 中心点（默认）
	TargetPosMid TargetPos = iota
	// TargetPosTopLeft 左上角
	TargetPosTopLeft
	// TargetPosTopRight 右上角
	TargetPosTopRight
	// TargetPosBottomLeft 左下角
	TargetPosBottomLeft
	// TargetPosBottomRight 右下角
	TargetPosBottomRight
)

// GetPosition 根据 TargetPos 从 MatchResult 获取对应位置
func (t TargetPos) GetPosition(result *MatchResult) Point {
	if result == nil {
		return Point{}
	}
	rect := result.Rectangle()
	switch t {
	case TargetPosTopLeft:
		return rect.TopLeft
	case TargetPosTopRight:
		return rect.TopRight
	case TargetPosBottomLeft:
		return rect.BottomLeft
	case TargetPosBottomRight:
		return rect.BottomRight
	default:
		return result.Center()
	}
}

// ImageInput 支持的图像输入类型
// 可以是文件路径 (string)、image.Image 或 gocv.Mat
type ImageInput interface{}
