package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ConfirmMatch 在 loc 处对候选区域做结构确认
//
// 裁剪出与模板同样大小的区域，转灰度后与模板逐像素做差，按
// ConfirmThreshold 二值化，再用 3x3 椭圆核腐蚀 ErodePasses 次去掉细小噪声。
// 腐蚀后没有任何非零像素才算确认通过。不修改输入图像。
func ConfirmMatch(source, search gocv.Mat, loc Point, params MatchParameters) (bool, error) {
	w, h := GetResolution(search)
	sw, sh := GetResolution(source)
	rect := image.Rect(loc.X, loc.Y, loc.X+w, loc.Y+h)
	if !rect.In(image.Rect(0, 0, sw, sh)) {
		return false, fmt.Errorf("确认区域 %v 超出源图像范围 %dx%d", rect, sw, sh)
	}

	roi := CropImage(source, [4]int{rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y})
	defer roi.Close()

	roiGray := ToGray(roi)
	searchGray := ToGray(search)
	defer roiGray.Close()
	defer searchGray.Close()

	return confirmGray(roiGray, searchGray, params), nil
}

// confirmGray 对两张同尺寸灰度图做 差值 -> 二值化 -> 腐蚀 -> 计数
func confirmGray(roi, search gocv.Mat, params MatchParameters) bool {
	if params.ConfirmMethod == ConfirmNormedAbsDiff {
		// ToGray 返回的是副本，原地拉伸不影响调用方
		gocv.Normalize(roi, &roi, 0, 255, gocv.NormMinMax)
		gocv.Normalize(search, &search, 0, 255, gocv.NormMinMax)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(roi, search, &diff)

	thresholded := gocv.NewMat()
	defer thresholded.Close()
	gocv.Threshold(diff, &thresholded, float32(int(params.ConfirmThreshold*255)), 255, gocv.ThresholdBinary)

	if params.ErodePasses > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 3, Y: 3})
		defer kernel.Close()
		for i := 0; i < params.ErodePasses; i++ {
			gocv.Erode(thresholded, &thresholded, kernel)
		}
	}

	return gocv.CountNonZero(thresholded) == 0
}
