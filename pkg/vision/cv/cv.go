// Package cv 提供多目标模板匹配功能
//
// 匹配流程:
//   - Correlate: 计算归一化互相关热图，取最佳得分
//   - 最佳得分不高于 BailOut 或最佳位置未通过确认时，直接判定无匹配
//   - 热图按 最佳得分*cutoff 阈值化得到候选点，候选点过多时中止
//   - 相邻候选点聚成簇，每簇取得分最高的点
//   - ConfirmMatch: 对每个点做 差值/二值化/腐蚀 结构确认
//
// 基本用法:
//
//	// 在截图中查找模板的所有实例
//	results, err := cv.FindAllLocations("screen.png", "icon.png",
//	    cv.WithTemplateCutoff(0.9),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Println(r)
//	}
//
//	// 直接使用 gocv.Mat
//	results, err := cv.MultiMatch(source, template, 0.95,
//	    cv.DefaultMatchParameters(), cv.DefaultTunables())
package cv
