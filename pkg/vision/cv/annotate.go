package cv

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

var (
	colorMatched  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorRejected = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// DrawBounds 在图像副本上画出每个结果的边框
// 通过确认的为绿色，未通过的为红色，左上角标注得分
func DrawBounds(img gocv.Mat, results []MatchResult) gocv.Mat {
	var drawn gocv.Mat
	if img.Channels() == 1 {
		drawn = gocv.NewMat()
		gocv.CvtColor(img, &drawn, gocv.ColorGrayToBGR)
	} else {
		drawn = img.Clone()
	}

	for _, r := range results {
		c := colorRejected
		if r.Matched {
			c = colorMatched
		}
		rect := image.Rect(r.Position.X, r.Position.Y, r.Position.X+r.Size.W, r.Position.Y+r.Size.H)
		gocv.Rectangle(&drawn, rect, c, 2)

		label := fmt.Sprintf("%.3f", r.Strength)
		org := image.Point{X: r.Position.X, Y: max(r.Position.Y-4, 10)}
		gocv.PutText(&drawn, label, org, gocv.FontHersheyPlain, 0.9, c, 1)
	}
	return drawn
}

// WriteAnnotated 把带边框的结果图保存到文件
func WriteAnnotated(filename string, img gocv.Mat, results []MatchResult) error {
	drawn := DrawBounds(img, results)
	defer drawn.Close()
	return WriteImage(filename, drawn)
}

// WriteHeatmap 把热图渲染为彩色图像并保存，格式由扩展名决定
func WriteHeatmap(filename string, hm *heatmap.Heatmap) error {
	if hm == nil {
		return fmt.Errorf("热图为空，无法保存: %s", filename)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	if err := imaging.Save(heatmap.Render(hm), filename); err != nil {
		return fmt.Errorf("保存热图失败: %w", err)
	}
	return nil
}
