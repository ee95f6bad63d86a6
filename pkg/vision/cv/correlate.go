package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// Correlate 计算模板在源图像上每个位置的相关度热图
//
// 返回热图、最佳得分及其左上角位置。热图尺寸为
// (源宽-模板宽+1, 源高-模板高+1)，得分越高越相似
// （sqdiff-normed 已转换为 1-v）。
func Correlate(source, search gocv.Mat, method MatchMethod) (*heatmap.Heatmap, float64, Point, error) {
	if err := checkInputs(source, search); err != nil {
		return nil, 0, Point{}, err
	}

	mode, err := templateMatchMode(method)
	if err != nil {
		return nil, 0, Point{}, err
	}

	srcGray := ToGray(source)
	searchGray := ToGray(search)
	defer srcGray.Close()
	defer searchGray.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(srcGray, searchGray, &result, mode, mask)

	hm, err := copyResult(&result, method == MatchMethodSqdiffNormed)
	if err != nil {
		return nil, 0, Point{}, err
	}

	// 在热图上取最大值，sqdiff 翻转后同样是越大越好
	best, bestLoc := hm.Max()
	return hm, best, bestLoc, nil
}

// copyResult 把 CV_32F 结果矩阵复制到热图
func copyResult(result *gocv.Mat, invert bool) (*heatmap.Heatmap, error) {
	rows, cols := result.Rows(), result.Cols()
	hm, err := heatmap.New(cols, rows)
	if err != nil {
		return nil, err
	}

	value := func(v float32) float64 {
		if invert {
			return 1 - float64(v)
		}
		return float64(v)
	}

	if data, err := result.DataPtrFloat32(); err == nil && len(data) == rows*cols {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				hm.Set(x, y, value(data[y*cols+x]))
			}
		}
		return hm, nil
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			hm.Set(x, y, value(result.GetFloatAt(y, x)))
		}
	}
	return hm, nil
}

// templateMatchMode 匹配方法到 OpenCV 模式的映射
func templateMatchMode(method MatchMethod) (gocv.TemplateMatchMode, error) {
	switch method {
	case MatchMethodCcorrNormed:
		return gocv.TmCcorrNormed, nil
	case MatchMethodCcoeffNormed:
		return gocv.TmCcoeffNormed, nil
	case MatchMethodSqdiffNormed:
		return gocv.TmSqdiffNormed, nil
	default:
		return 0, fmt.Errorf("%w: 不支持的匹配方法 %q", ErrInvalidParameter, method)
	}
}

// checkInputs 在计算热图之前校验输入图像
func checkInputs(source, search gocv.Mat) error {
	if source.Empty() {
		return &PreconditionError{Reason: "源图像为空"}
	}
	if search.Empty() {
		return &PreconditionError{Reason: "模板图像为空"}
	}
	if source.Channels() != search.Channels() {
		return &PreconditionError{
			Reason: fmt.Sprintf("通道数不一致: 源图像 %d, 模板 %d", source.Channels(), search.Channels()),
		}
	}
	return checkSourceLargerThanSearch(source, search)
}

// checkSourceLargerThanSearch 检查源图像是否大于搜索图像
func checkSourceLargerThanSearch(source, search gocv.Mat) error {
	if source.Rows() < search.Rows() || source.Cols() < search.Cols() {
		return &ImageSizeError{
			SourceSize: [2]int{source.Cols(), source.Rows()},
			SearchSize: [2]int{search.Cols(), search.Rows()},
		}
	}
	return nil
}
