package heatmap

import (
	"errors"
	"fmt"
)

// DefaultMaxCandidates 默认候选点数量上限
const DefaultMaxCandidates = 1000

var (
	// ErrTooManyCandidates 阈值化后候选点过多
	ErrTooManyCandidates = errors.New("候选匹配点过多")
	// ErrInvalidCutoff cutoff 不在 (0, 1] 范围内
	ErrInvalidCutoff = errors.New("cutoff 必须在 (0, 1] 范围内")
)

// TooManyCandidatesError 候选点数量超过上限
// Count 为停止计数时已收集的点数，即 Limit+1
type TooManyCandidatesError struct {
	Count int
	Limit int
}

func (e *TooManyCandidatesError) Error() string {
	return fmt.Sprintf("候选匹配点过多 (超过上限 %d)，请提高 cutoff 或使用区分度更高的模板", e.Limit)
}

// Is 支持 errors.Is(err, ErrTooManyCandidates)
func (e *TooManyCandidatesError) Is(target error) bool {
	return target == ErrTooManyCandidates
}

// Peaks 提取得分不低于 maxVal*cutoff 的所有点，按扫描顺序（先行后列）返回
//
// 候选点超过 limit 时立即停止并返回 *TooManyCandidatesError；limit <= 0 表示不限制。
func Peaks(h *Heatmap, maxVal, cutoff float64, limit int) ([]Point, error) {
	if !(cutoff > 0 && cutoff <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCutoff, cutoff)
	}

	threshold := maxVal * cutoff
	rows, cols := h.data.Dims()

	var points []Point
	for y := 0; y < rows; y++ {
		row := h.data.RawRowView(y)
		for x := 0; x < cols; x++ {
			if row[x] < threshold {
				continue
			}
			points = append(points, Point{X: x, Y: y})
			if limit > 0 && len(points) > limit {
				return nil, &TooManyCandidatesError{Count: len(points), Limit: limit}
			}
		}
	}
	return points, nil
}
