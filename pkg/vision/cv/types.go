package cv

import (
	"fmt"

	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// Point 表示二维坐标点
type Point = heatmap.Point

// Size 表示宽高
type Size = heatmap.Size

// Rectangle 表示矩形区域（四个角点）
type Rectangle struct {
	TopLeft     Point `json:"top_left"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
	TopRight    Point `json:"top_right"`
}

// MatchResult 单个目标的匹配结果
type MatchResult struct {
	// Matched 是否通过结构确认
	Matched bool `json:"matched"`
	// Position 匹配区域左上角坐标
	Position Point `json:"position"`
	// Strength 热图上的相关度得分
	Strength float64 `json:"strength"`
	// Size 匹配区域（模板）尺寸
	Size Size `json:"size"`
	// Time 匹配耗时（毫秒）
	Time float64 `json:"time,omitempty"`
}

// Center 返回匹配区域中心点
func (r MatchResult) Center() Point {
	return Point{X: r.Position.X + r.Size.W/2, Y: r.Position.Y + r.Size.H/2}
}

// Rectangle 返回匹配区域的四个角点: 左上 -> 左下 -> 右下 -> 右上
func (r MatchResult) Rectangle() Rectangle {
	x, y, w, h := r.Position.X, r.Position.Y, r.Size.W, r.Size.H
	return Rectangle{
		TopLeft:     Point{X: x, Y: y},
		BottomLeft:  Point{X: x, Y: y + h},
		BottomRight: Point{X: x + w, Y: y + h},
		TopRight:    Point{X: x + w, Y: y},
	}
}

func (r MatchResult) String() string {
	status := "Match"
	if !r.Matched {
		status = "Weak match"
	}
	return fmt.Sprintf("%s at (%d, %d) strength=%.4f size=%dx%d",
		status, r.Position.X, r.Position.Y, r.Strength, r.Size.W, r.Size.H)
}

// MatchMethod 模板匹配算法
type MatchMethod string

const (
	MatchMethodCcorrNormed  MatchMethod = "ccorr-normed"  // 归一化互相关（默认）
	MatchMethodCcoeffNormed MatchMethod = "ccoeff-normed" // 归一化相关系数
	MatchMethodSqdiffNormed MatchMethod = "sqdiff-normed" // 归一化平方差，得分取 1-v
)

// ConfirmMethod 结构确认算法
type ConfirmMethod string

const (
	// ConfirmNormedAbsDiff 先把两张图各自拉伸到 0-255 再做差，抵消曝光差异
	ConfirmNormedAbsDiff ConfirmMethod = "normed-absdiff"
	// ConfirmAbsDiff 直接做差
	ConfirmAbsDiff ConfirmMethod = "absdiff"
)

// MatchParameters 匹配与确认参数
type MatchParameters struct {
	MatchMethod      MatchMethod   `json:"match_method"`
	ConfirmMethod    ConfirmMethod `json:"confirm_method"`
	ConfirmThreshold float64       `json:"confirm_threshold"` // 差值二值化阈值，占满量程的比例 [0, 1]
	ErodePasses      int           `json:"erode_passes"`      // 腐蚀次数
}

// DefaultMatchParameters 默认匹配参数
func DefaultMatchParameters() MatchParameters {
	return MatchParameters{
		MatchMethod:      MatchMethodCcorrNormed,
		ConfirmMethod:    ConfirmNormedAbsDiff,
		ConfirmThreshold: 0.2,
		ErodePasses:      1,
	}
}

// Validate 校验参数
func (p MatchParameters) Validate() error {
	switch p.MatchMethod {
	case MatchMethodCcorrNormed, MatchMethodCcoeffNormed, MatchMethodSqdiffNormed:
	default:
		return fmt.Errorf("%w: 不支持的匹配方法 %q", ErrInvalidParameter, p.MatchMethod)
	}
	if p.ConfirmThreshold < 0 || p.ConfirmThreshold > 1 {
		return fmt.Errorf("%w: confirm_threshold 必须在 [0, 1] 范围内: %v", ErrInvalidParameter, p.ConfirmThreshold)
	}
	if p.ErodePasses < 0 {
		return fmt.Errorf("%w: erode_passes 不能为负数: %d", ErrInvalidParameter, p.ErodePasses)
	}
	return nil
}

// Tunables 多目标匹配的可调常量
type Tunables struct {
	// BailOut 最佳得分不高于该值时直接判定无匹配
	BailOut float64 `json:"bail_out"`
	// MaxCandidates 阈值化后候选点数量上限
	MaxCandidates int `json:"max_candidates"`
	// ProximityScale 聚类邻近范围占模板宽高的比例
	ProximityScale float64 `json:"proximity_scale"`
	// ClusterMode 聚类方式
	ClusterMode heatmap.ClusterMode `json:"cluster_mode"`
}

// DefaultTunables 默认可调常量
func DefaultTunables() Tunables {
	return Tunables{
		BailOut:        0.80,
		MaxCandidates:  heatmap.DefaultMaxCandidates,
		ProximityScale: 0.5,
		ClusterMode:    heatmap.ClusterGreedy,
	}
}

// Validate 校验可调常量
func (t Tunables) Validate() error {
	if t.BailOut < 0 || t.BailOut >= 1 {
		return fmt.Errorf("%w: bail_out 必须在 [0, 1) 范围内: %v", ErrInvalidParameter, t.BailOut)
	}
	if t.MaxCandidates <= 0 {
		return fmt.Errorf("%w: max_candidates 必须大于 0: %d", ErrInvalidParameter, t.MaxCandidates)
	}
	if t.ProximityScale < 0 {
		return fmt.Errorf("%w: proximity_scale 不能为负数: %v", ErrInvalidParameter, t.ProximityScale)
	}
	switch t.ClusterMode {
	case heatmap.ClusterGreedy, heatmap.ClusterConnected:
	default:
		return fmt.Errorf("%w: 不支持的聚类方式 %q", ErrInvalidParameter, t.ClusterMode)
	}
	return nil
}
