// Package vision 提供多目标图像匹配功能
//
// 主要功能:
//   - 多目标模板匹配: 找出模板在源图像中的所有实例
//   - 结构确认: 差值/二值化/腐蚀 过滤相关度高但结构不同的位置
//   - 热图导出: 把相关度热图渲染为彩色图像
//
// 基本用法:
//
//	results, err := vision.FindAllLocations("screen.png", "icon.png",
//	    vision.WithCutoff(0.9),
//	    vision.WithClusterMode(vision.ClusterConnected),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("%s\n", r)
//	}
package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/pkg/vision/cv"
)

// ============ 匹配便捷函数 ============

// FindLocation 在源图像中查找模板，返回得分最高的确认结果的中心点
// screen: 源图像 (文件路径、image.Image 或 gocv.Mat)
// template: 模板 (文件路径、data URL 或 *cv.Template)
// opts: 可选配置，模板为 *cv.Template 时使用模板自身的配置
func FindLocation(screen, template interface{}, opts ...Option) (*Point, error) {
	cfg := newMatchConfig(opts)
	return cv.FindLocation(screen, template, cfg.templateOptions()...)
}

// FindAllLocations 在源图像中查找模板的所有实例（包括未通过确认的结果）
func FindAllLocations(screen, template interface{}, opts ...Option) ([]MatchResult, error) {
	cfg := newMatchConfig(opts)
	return cv.FindAllLocations(screen, template, cfg.templateOptions()...)
}

// MultiMatch 在 source 中查找 search 的所有实例，同时返回计算出的热图
// 输入无效时热图为 nil
func MultiMatch(source, search gocv.Mat, opts ...Option) ([]MatchResult, *Heatmap, error) {
	cfg := newMatchConfig(opts)
	m := cv.NewMultiMatching(search, source, cfg.cutoff, cfg.params, cfg.tunables)
	results, err := m.FindAllResults()
	return results, m.Heatmap, err
}

// ConfirmMatch 对 loc 处的候选区域做结构确认
func ConfirmMatch(source, search gocv.Mat, loc Point, opts ...Option) (bool, error) {
	cfg := newMatchConfig(opts)
	return cv.ConfirmMatch(source, search, loc, cfg.params)
}

// ============ 工具函数 ============

// ReadImage 读取图像文件
func ReadImage(filename string) (gocv.Mat, error) {
	return cv.ReadImage(filename)
}

// LoadImage 加载图像 (支持多种输入类型)
func LoadImage(input ImageInput) (gocv.Mat, error) {
	return cv.LoadImageInput(input)
}

// ImageToMat 将 image.Image 转换为 gocv.Mat
func ImageToMat(img image.Image) (gocv.Mat, error) {
	return cv.ImageToMat(img)
}

// WriteAnnotated 保存带匹配边框的结果图
func WriteAnnotated(filename string, img gocv.Mat, results []MatchResult) error {
	return cv.WriteAnnotated(filename, img, results)
}

// WriteHeatmap 保存热图
func WriteHeatmap(filename string, hm *Heatmap) error {
	return cv.WriteHeatmap(filename, hm)
}

// ============ Template 快捷创建 ============

// NewTemplate 创建模板
func NewTemplate(filename string, opts ...Option) *cv.Template {
	return cv.NewTemplate(filename, newMatchConfig(opts).templateOptions()...)
}

// Template 模板类型别名
type Template = cv.Template
