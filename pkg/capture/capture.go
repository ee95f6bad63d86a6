// Package capture 把屏幕截图作为匹配源图像
package capture

import (
	"fmt"
	"image"
	"math"

	"github.com/go-vgo/robotgo"
	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/pkg/vision/cv"
)

// Meta 截图元信息（缩放和偏移量）
// 截图像素坐标 -> 屏幕坐标: 先除以缩放比，再加偏移
type Meta struct {
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
	OffsetX int     `json:"offset_x"`
	OffsetY int     `json:"offset_y"`
}

// Screen 截取全屏，返回 BGR 格式的 gocv.Mat
func Screen() (gocv.Mat, Meta, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return gocv.Mat{}, Meta{}, fmt.Errorf("截屏失败: %w", err)
	}

	w, h := robotgo.GetScreenSize()
	return toMat(img, buildMeta(img.Bounds(), w, h, 0, 0))
}

// Region 截取屏幕区域
func Region(x, y, width, height int) (gocv.Mat, Meta, error) {
	if width <= 0 || height <= 0 {
		return gocv.Mat{}, Meta{}, fmt.Errorf("截图区域无效: %dx%d", width, height)
	}

	img, err := robotgo.CaptureImg(x, y, width, height)
	if err != nil {
		return gocv.Mat{}, Meta{}, fmt.Errorf("截取区域失败: %w", err)
	}
	return toMat(img, buildMeta(img.Bounds(), width, height, x, y))
}

// DisplayCount 获取显示器数量
func DisplayCount() int {
	return robotgo.DisplaysNum()
}

func toMat(img image.Image, meta Meta) (gocv.Mat, Meta, error) {
	mat, err := cv.ImageToMat(img)
	if err != nil {
		return mat, Meta{}, fmt.Errorf("转换截图失败: %w", err)
	}
	return mat, meta, nil
}

// buildMeta 根据截图实际尺寸与期望尺寸计算缩放比（HiDPI 屏幕上截图像素多于逻辑坐标）
func buildMeta(bounds image.Rectangle, expectedW, expectedH, offsetX, offsetY int) Meta {
	scaleX := 1.0
	if expectedW > 0 && bounds.Dx() > 0 {
		scaleX = float64(bounds.Dx()) / float64(expectedW)
	}
	scaleY := 1.0
	if expectedH > 0 && bounds.Dy() > 0 {
		scaleY = float64(bounds.Dy()) / float64(expectedH)
	}

	return Meta{
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		OffsetX: offsetX,
		OffsetY: offsetY,
	}
}

// AdjustPoint 把截图像素坐标转换为屏幕坐标
func AdjustPoint(p cv.Point, meta Meta) cv.Point {
	return cv.Point{
		X: scaleCoord(p.X, meta.ScaleX) + meta.OffsetX,
		Y: scaleCoord(p.Y, meta.ScaleY) + meta.OffsetY,
	}
}

// AdjustResults 把匹配结果的位置和尺寸转换到屏幕坐标
func AdjustResults(results []cv.MatchResult, meta Meta) []cv.MatchResult {
	if results == nil {
		return nil
	}

	adjusted := make([]cv.MatchResult, len(results))
	for i, r := range results {
		r.Position = AdjustPoint(r.Position, meta)
		r.Size = cv.Size{
			W: scaleCoord(r.Size.W, meta.ScaleX),
			H: scaleCoord(r.Size.H, meta.ScaleY),
		}
		adjusted[i] = r
	}
	return adjusted
}

func scaleCoord(value int, scale float64) int {
	if scale <= 0 {
		return value
	}
	return int(math.Round(float64(value) / scale))
}
