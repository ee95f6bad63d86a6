package heatmap

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	coldColor = colorful.Color{R: 0.05, G: 0.05, B: 0.45}
	hotColor  = colorful.Color{R: 1, G: 0.2, B: 0.1}
)

// Render 把热图渲染为彩色图像，低分偏蓝，高分偏红
func Render(h *Heatmap) *image.NRGBA {
	w, ht := h.Width(), h.Height()
	dst := image.NewNRGBA(image.Rect(0, 0, w, ht))

	lo, hi := h.Range()
	span := hi - lo

	for y := 0; y < ht; y++ {
		row := h.data.RawRowView(y)
		for x := 0; x < w; x++ {
			t := 0.0
			if span > 0 {
				t = (row[x] - lo) / span
			}
			dst.Set(x, y, coldColor.BlendHcl(hotColor, t).Clamped())
		}
	}
	return dst
}
