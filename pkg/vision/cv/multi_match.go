package cv

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/internal/logger"
	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// MultiMatching 多目标模板匹配器
//
// 与只取最大值的单目标匹配不同，它找出所有得分不低于 最佳得分*cutoff 的
// 位置，把属于同一个目标的相邻位置聚成一簇，每簇只报告一个结果。
type MultiMatching struct {
	imSearch gocv.Mat
	imSource gocv.Mat
	cutoff   float64
	params   MatchParameters
	tunables Tunables

	// Heatmap 最近一次 FindAllResults 计算的热图，未计算或输入无效时为 nil
	Heatmap *heatmap.Heatmap
}

// NewMultiMatching 创建多目标匹配器
func NewMultiMatching(search, source gocv.Mat, cutoff float64, params MatchParameters, tunables Tunables) *MultiMatching {
	return &MultiMatching{
		imSearch: search,
		imSource: source,
		cutoff:   cutoff,
		params:   params,
		tunables: tunables,
	}
}

// FindAllResults 查找所有匹配结果，按聚类发现顺序返回（包括未通过确认的结果）
//
// 没有可信匹配时返回 nil, nil；候选点过多时返回 ErrTooManyCandidates。
func (m *MultiMatching) FindAllResults() ([]MatchResult, error) {
	startTime := time.Now()
	m.Heatmap = nil

	if err := m.validate(); err != nil {
		return nil, err
	}

	hm, maxVal, maxLoc, err := Correlate(m.imSource, m.imSearch, m.params.MatchMethod)
	if err != nil {
		return nil, err
	}
	m.Heatmap = hm

	if logger.Default().Enabled(logger.DEBUG) {
		mean, std := hm.Stats()
		logger.Debug("热图 %dx%d: max=%.4f at (%d, %d), mean=%.4f, std=%.4f",
			hm.Width(), hm.Height(), maxVal, maxLoc.X, maxLoc.Y, mean, std)
	}

	if maxVal <= m.tunables.BailOut {
		logger.LogStage("bail", false, elapsedMs(startTime),
			fmt.Sprintf("最佳得分 %.4f 不高于 %.2f，无匹配", maxVal, m.tunables.BailOut))
		return nil, nil
	}

	// 先确认最佳位置，避免在根本没有真实目标时做聚类
	matched, err := ConfirmMatch(m.imSource, m.imSearch, maxLoc, m.params)
	if err != nil {
		return nil, err
	}
	if !matched {
		logger.LogStage("best", false, elapsedMs(startTime),
			fmt.Sprintf("最佳位置 (%d, %d) 未通过确认，无匹配", maxLoc.X, maxLoc.Y))
		return nil, nil
	}

	points, err := heatmap.Peaks(hm, maxVal, m.cutoff, m.tunables.MaxCandidates)
	if err != nil {
		logger.Warn("阈值化失败: %v", err)
		return nil, err
	}
	logger.Debug("找到 %d 个候选点", len(points))

	size := Size{W: m.imSearch.Cols(), H: m.imSearch.Rows()}
	clusters := heatmap.Group(points, heatmap.Boundary(size, m.tunables.ProximityScale), m.tunables.ClusterMode)
	logger.Debug("聚类得到 %d 个簇 (%s)", len(clusters), m.tunables.ClusterMode)

	candidates := heatmap.Reduce(hm, clusters)

	results := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		ok, err := ConfirmMatch(m.imSource, m.imSearch, c.Point, m.params)
		if err != nil {
			return nil, err
		}
		results = append(results, MatchResult{
			Matched:  ok,
			Position: c.Point,
			Strength: c.Strength,
			Size:     size,
			Time:     elapsedMs(startTime),
		})
		logger.Debug("%s", results[len(results)-1])
	}

	logger.LogStage("multi", true, elapsedMs(startTime),
		fmt.Sprintf("%d 个候选点, %d 个结果", len(points), len(results)))
	return results, nil
}

// FindBestResult 返回得分最高且通过确认的结果，没有则返回 nil
func (m *MultiMatching) FindBestResult() (*MatchResult, error) {
	results, err := m.FindAllResults()
	if err != nil {
		return nil, err
	}
	return bestConfirmed(results), nil
}

func (m *MultiMatching) validate() error {
	if !(m.cutoff > 0 && m.cutoff <= 1) {
		return fmt.Errorf("%w: cutoff 必须在 (0, 1] 范围内: %v", ErrInvalidParameter, m.cutoff)
	}
	if err := m.params.Validate(); err != nil {
		return err
	}
	return m.tunables.Validate()
}

// MultiMatch 便捷函数：在 source 中查找 search 的所有实例
func MultiMatch(source, search gocv.Mat, cutoff float64, params MatchParameters, tunables Tunables) ([]MatchResult, error) {
	return NewMultiMatching(search, source, cutoff, params, tunables).FindAllResults()
}

// bestConfirmed 返回通过确认的结果中得分最高的一个
func bestConfirmed(results []MatchResult) *MatchResult {
	var best *MatchResult
	for i := range results {
		r := &results[i]
		if !r.Matched {
			continue
		}
		if best == nil || r.Strength > best.Strength {
			best = r
		}
	}
	return best
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
