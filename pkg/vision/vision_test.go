package vision

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"testing"

	"github.com/zoeyai/multimatch/pkg/vision/cv"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version 不应为空")
	}
	t.Logf("Version: %s", Version)
}

func TestPoint(t *testing.T) {
	p := NewPoint(10, 20)

	if p.X != 10 || p.Y != 20 {
		t.Errorf("Point 创建错误: got (%d, %d), want (10, 20)", p.X, p.Y)
	}
}

func TestRectangle(t *testing.T) {
	r := NewRectangle(10, 20, 100, 50)

	// 检查四个角点
	if r.TopLeft.X != 10 || r.TopLeft.Y != 20 {
		t.Errorf("TopLeft 错误: got (%d, %d)", r.TopLeft.X, r.TopLeft.Y)
	}
	if r.BottomLeft.X != 10 || r.BottomLeft.Y != 70 {
		t.Errorf("BottomLeft 错误: got (%d, %d)", r.BottomLeft.X, r.BottomLeft.Y)
	}
	if r.BottomRight.X != 110 || r.BottomRight.Y != 70 {
		t.Errorf("BottomRight 错误: got (%d, %d)", r.BottomRight.X, r.BottomRight.Y)
	}
	if r.TopRight.X != 110 || r.TopRight.Y != 20 {
		t.Errorf("TopRight 错误: got (%d, %d)", r.TopRight.X, r.TopRight.Y)
	}

	if rect := ToImageRect(r); rect != image.Rect(10, 20, 110, 70) {
		t.Errorf("ToImageRect 错误: %v", rect)
	}
}

func TestTargetPos(t *testing.T) {
	r := &MatchResult{Position: Point{X: 10, Y: 20}, Size: Size{W: 100, H: 50}}

	tests := []struct {
		pos  TargetPos
		want Point
	}{
		{TargetPosMid, Point{X: 60, Y: 45}},
		{TargetPosTopLeft, Point{X: 10, Y: 20}},
		{TargetPosTopRight, Point{X: 110, Y: 20}},
		{TargetPosBottomLeft, Point{X: 10, Y: 70}},
		{TargetPosBottomRight, Point{X: 110, Y: 70}},
	}
	for _, tt := range tests {
		if got := tt.pos.GetPosition(r); got != tt.want {
			t.Errorf("GetPosition(%d) 错误: got %v, want %v", tt.pos, got, tt.want)
		}
	}

	if got := TargetPosMid.GetPosition(nil); got != (Point{}) {
		t.Errorf("nil 结果应返回零值: %v", got)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions

	if opts.Cutoff != 0.95 {
		t.Errorf("Cutoff 错误: got %.2f, want 0.95", opts.Cutoff)
	}
	if opts.Params.MatchMethod != MatchMethodCcorrNormed {
		t.Errorf("MatchMethod 错误: got %s", opts.Params.MatchMethod)
	}
	if opts.Params.ConfirmMethod != ConfirmNormedAbsDiff {
		t.Errorf("ConfirmMethod 错误: got %s", opts.Params.ConfirmMethod)
	}
	if opts.Tunables.BailOut != 0.8 || opts.Tunables.MaxCandidates != 1000 {
		t.Errorf("Tunables 错误: %+v", opts.Tunables)
	}

	t.Logf("DefaultOptions: %+v", opts)
}

func TestOptions(t *testing.T) {
	original := GetOptions()
	defer SetOptions(original)

	newOpts := DefaultOptions
	newOpts.Cutoff = 0.9
	newOpts.Tunables.ClusterMode = ClusterConnected
	newOpts.TemplateDir = "/assets"
	SetOptions(newOpts)

	current := GetOptions()
	if current.Cutoff != 0.9 || current.Tunables.ClusterMode != ClusterConnected {
		t.Errorf("SetOptions 失败: %+v", current)
	}

	cfg := defaultMatchConfig()
	if cfg.cutoff != 0.9 || cfg.tunables.ClusterMode != ClusterConnected || cfg.templateDir != "/assets" {
		t.Errorf("匹配配置应继承全局配置: %+v", cfg)
	}

	ResetOptions()
	current = GetOptions()
	if current.Cutoff != 0.95 || current.Tunables.ClusterMode != ClusterGreedy {
		t.Errorf("ResetOptions 失败: %+v", current)
	}
}

func TestMatchConfig(t *testing.T) {
	cfg := newMatchConfig([]Option{
		WithCutoff(0.8),
		WithMatchMethod(MatchMethodSqdiffNormed),
		WithConfirmMethod(ConfirmAbsDiff),
		WithConfirmThreshold(0.3),
		WithErodePasses(2),
		WithBailOut(0.5),
		WithMaxCandidates(50),
		WithProximityScale(1),
		WithClusterMode(ClusterConnected),
		WithTemplateDir("/assets"),
	})

	if cfg.cutoff != 0.8 {
		t.Errorf("WithCutoff 失败: got %.2f", cfg.cutoff)
	}
	want := MatchParameters{
		MatchMethod:      MatchMethodSqdiffNormed,
		ConfirmMethod:    ConfirmAbsDiff,
		ConfirmThreshold: 0.3,
		ErodePasses:      2,
	}
	if cfg.params != want {
		t.Errorf("匹配参数错误: got %+v, want %+v", cfg.params, want)
	}
	wantTunables := Tunables{BailOut: 0.5, MaxCandidates: 50, ProximityScale: 1, ClusterMode: ClusterConnected}
	if cfg.tunables != wantTunables {
		t.Errorf("可调常量错误: got %+v, want %+v", cfg.tunables, wantTunables)
	}
	tmpl := cv.NewTemplate("icon.png", cfg.templateOptions()...)
	defer tmpl.Close()
	if tmpl.BaseDir != "/assets" || tmpl.Cutoff != 0.8 || tmpl.Params != want || tmpl.Tunables != wantTunables {
		t.Errorf("templateOptions 未完整传递: %+v", tmpl)
	}
}

// scene 黑色背景上贴两个相同的随机纹理图块
func scene() (source, template *image.RGBA) {
	rng := rand.New(rand.NewSource(1))
	template = image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(rng.Intn(256))
			template.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	source = image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(source, source.Bounds(), &image.Uniform{C: color.RGBA{A: 255}}, image.Point{}, draw.Src)
	for _, p := range []image.Point{{X: 10, Y: 10}, {X: 60, Y: 60}} {
		draw.Draw(source, image.Rect(p.X, p.Y, p.X+10, p.Y+10), template, image.Point{}, draw.Src)
	}
	return source, template
}

func TestMultiMatch(t *testing.T) {
	src, tpl := scene()
	source, err := ImageToMat(src)
	if err != nil {
		t.Fatalf("ImageToMat 失败: %v", err)
	}
	defer source.Close()
	search, err := LoadImage(tpl)
	if err != nil {
		t.Fatalf("LoadImage 失败: %v", err)
	}
	defer search.Close()

	results, hm, err := MultiMatch(source, search, WithCutoff(0.9))
	if err != nil {
		t.Fatalf("MultiMatch 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("期望 2 个结果, 实际 %d", len(results))
	}
	if hm == nil || hm.Width() != 91 {
		t.Error("应返回热图")
	}

	ok, err := ConfirmMatch(source, search, results[1].Position)
	if err != nil || !ok {
		t.Errorf("ConfirmMatch 失败: ok=%v err=%v", ok, err)
	}

	_, hm, err = MultiMatch(search, source)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("模板大于源图像应返回 ErrPrecondition, 实际 %v", err)
	}
	if hm != nil {
		t.Error("输入无效时热图应为 nil")
	}

	if _, _, err := MultiMatch(source, search, WithCutoff(0)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("cutoff=0 应返回 ErrInvalidParameter, 实际 %v", err)
	}
}

func TestFindAllLocations(t *testing.T) {
	src, _ := scene()

	tmpl := NewTemplate("unused.png", WithCutoff(0.9))
	if tmpl.Cutoff != 0.9 {
		t.Errorf("NewTemplate 未应用选项: %v", tmpl.Cutoff)
	}
	tmpl.Close()

	results, err := FindAllLocations(src, "missing-template.png")
	if err == nil {
		t.Errorf("模板不存在时应返回错误, 实际结果 %v", results)
	}

	pos, err := FindLocation(src, "missing-template.png")
	if err == nil || pos != nil {
		t.Errorf("模板不存在时应返回错误")
	}
}
