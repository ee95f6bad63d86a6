package cv

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/internal/logger"
	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

func TestMultiMatchTwoPatches(t *testing.T) {
	source, search := twoPatchScene(t)
	defer source.Close()
	defer search.Close()

	for _, mode := range []heatmap.ClusterMode{heatmap.ClusterGreedy, heatmap.ClusterConnected} {
		t.Run(string(mode), func(t *testing.T) {
			tunables := DefaultTunables()
			tunables.ClusterMode = mode

			m := NewMultiMatching(search, source, 0.9, DefaultMatchParameters(), tunables)
			results, err := m.FindAllResults()
			if err != nil {
				t.Fatalf("FindAllResults 失败: %v", err)
			}
			if len(results) != 2 {
				t.Fatalf("期望 2 个结果, 实际 %d: %v", len(results), results)
			}

			want := []Point{{X: 10, Y: 10}, {X: 60, Y: 60}}
			for i, r := range results {
				if !r.Matched {
					t.Errorf("[%d] 应通过确认: %s", i, r)
				}
				if r.Position != want[i] {
					t.Errorf("[%d] 位置错误: got %v, want %v", i, r.Position, want[i])
				}
				if r.Strength <= 0.99 {
					t.Errorf("[%d] 得分过低: %.4f", i, r.Strength)
				}
				if r.Size != (Size{W: 10, H: 10}) {
					t.Errorf("[%d] 尺寸错误: %v", i, r.Size)
				}
			}

			if m.Heatmap == nil || m.Heatmap.Width() != 91 || m.Heatmap.Height() != 91 {
				t.Errorf("热图未保留或尺寸错误")
			}
		})
	}
}

func TestMultiMatchBlankSource(t *testing.T) {
	source := toMat(t, canvas(100, 100, 0))
	defer source.Close()
	search := toMat(t, texture(10, 10, 1))
	defer search.Close()

	results, err := MultiMatch(source, search, 0.9, DefaultMatchParameters(), DefaultTunables())
	if err != nil {
		t.Fatalf("空白源图像不应返回错误: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("空白源图像应无匹配, 实际 %d 个", len(results))
	}
}

func TestMultiMatchTooManyCandidates(t *testing.T) {
	tex := texture(100, 100, 7)
	source := toMat(t, tex)
	defer source.Close()
	search := toMat(t, crop(tex, 30, 30, 10, 10))
	defer search.Close()

	results, err := MultiMatch(source, search, 0.3, DefaultMatchParameters(), DefaultTunables())
	if !errors.Is(err, ErrTooManyCandidates) {
		t.Fatalf("期望 ErrTooManyCandidates, 实际 %v", err)
	}
	if results != nil {
		t.Errorf("候选点过多时不应返回部分结果: %v", results)
	}

	var tooMany *heatmap.TooManyCandidatesError
	if !errors.As(err, &tooMany) || tooMany.Limit != DefaultTunables().MaxCandidates {
		t.Errorf("错误类型或上限不正确: %v", err)
	}

	// 提高阈值后应只剩一个目标
	results, err = MultiMatch(source, search, 0.99, DefaultMatchParameters(), DefaultTunables())
	if err != nil {
		t.Fatalf("MultiMatch 失败: %v", err)
	}
	if len(results) != 1 || results[0].Position != (Point{X: 30, Y: 30}) {
		t.Errorf("期望唯一结果位于 (30, 30), 实际 %v", results)
	}
}

func TestMultiMatchReportsRejected(t *testing.T) {
	tpl := texture(10, 10, 11)

	// 第二个实例有一块 4x4 的区域每个像素差 128
	damaged := damage(tpl)

	src := canvas(100, 100, 0)
	paste(src, tpl, 10, 10)
	paste(src, damaged, 60, 60)

	source := toMat(t, src)
	defer source.Close()
	search := toMat(t, tpl)
	defer search.Close()

	params := DefaultMatchParameters()
	params.ConfirmMethod = ConfirmAbsDiff

	results, err := MultiMatch(source, search, 0.85, params, DefaultTunables())
	if err != nil {
		t.Fatalf("MultiMatch 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("期望 2 个结果, 实际 %d: %v", len(results), results)
	}
	if !results[0].Matched || results[0].Position != (Point{X: 10, Y: 10}) {
		t.Errorf("第一个结果应为 (10, 10) 处的确认匹配: %s", results[0])
	}
	if results[1].Matched {
		t.Errorf("损坏的实例不应通过确认: %s", results[1])
	}

	best := bestConfirmed(results)
	if best == nil || best.Position != (Point{X: 10, Y: 10}) {
		t.Errorf("bestConfirmed 应返回 (10, 10): %v", best)
	}
}

// damage 在模板中心 4x4 区域每个像素加 128
func damage(tpl *image.Gray) *image.Gray {
	damaged := crop(tpl, 0, 0, tpl.Bounds().Dx(), tpl.Bounds().Dy())
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			damaged.SetGray(x, y, color.Gray{Y: damaged.GrayAt(x, y).Y + 128})
		}
	}
	return damaged
}

func TestMultiMatchBestRejected(t *testing.T) {
	tpl := texture(10, 10, 11)
	src := canvas(100, 100, 0)
	paste(src, damage(tpl), 40, 40)

	source := toMat(t, src)
	defer source.Close()
	search := toMat(t, tpl)
	defer search.Close()

	params := DefaultMatchParameters()
	params.ConfirmMethod = ConfirmAbsDiff

	var buf bytes.Buffer
	log := logger.Default()
	oldLevel := log.Level()
	log.SetOutput(&buf)
	log.SetLevel(logger.DEBUG)
	defer func() {
		log.SetOutput(nil)
		log.SetLevel(oldLevel)
	}()

	m := NewMultiMatching(search, source, 0.85, params, DefaultTunables())
	results, err := m.FindAllResults()
	if err != nil {
		t.Fatalf("最佳位置未通过确认时不应返回错误: %v", err)
	}
	if results != nil {
		t.Errorf("最佳位置未通过确认时应无结果, 实际 %v", results)
	}

	// 得分高于 bail-out，确实走到了确认这一步
	if m.Heatmap == nil {
		t.Fatal("应保留热图")
	}
	best, loc := m.Heatmap.Max()
	if best <= DefaultTunables().BailOut || loc != (Point{X: 40, Y: 40}) {
		t.Fatalf("最佳得分 %.4f 位于 %v, 期望高于 %.2f 且位于 (40, 40)", best, loc, DefaultTunables().BailOut)
	}

	out := buf.String()
	if !strings.Contains(out, "best  | NG") {
		t.Errorf("应记录最佳位置确认失败: %q", out)
	}
	if strings.Contains(out, "候选点") || strings.Contains(out, "聚类") {
		t.Errorf("最佳位置未通过确认时不应阈值化和聚类: %q", out)
	}
}

func TestMultiMatchInvalidParameters(t *testing.T) {
	source, search := twoPatchScene(t)
	defer source.Close()
	defer search.Close()

	for _, cutoff := range []float64{0, -0.5, 1.01} {
		if _, err := MultiMatch(source, search, cutoff, DefaultMatchParameters(), DefaultTunables()); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("cutoff=%v 应返回 ErrInvalidParameter, 实际 %v", cutoff, err)
		}
	}

	tunables := DefaultTunables()
	tunables.ClusterMode = "kmeans"
	if _, err := MultiMatch(source, search, 0.9, DefaultMatchParameters(), tunables); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("未知聚类方式应返回 ErrInvalidParameter, 实际 %v", err)
	}
}

func TestMultiMatchOversizeTemplate(t *testing.T) {
	source := toMat(t, canvas(20, 20, 0))
	defer source.Close()
	search := toMat(t, texture(30, 10, 1))
	defer search.Close()

	m := NewMultiMatching(search, source, 0.9, DefaultMatchParameters(), DefaultTunables())
	_, err := m.FindAllResults()
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("期望 ErrPrecondition, 实际 %v", err)
	}
	if m.Heatmap != nil {
		t.Error("输入无效时不应保留热图")
	}
}

func TestFindBestResult(t *testing.T) {
	source, search := twoPatchScene(t)
	defer source.Close()
	defer search.Close()

	best, err := NewMultiMatching(search, source, 0.9, DefaultMatchParameters(), DefaultTunables()).FindBestResult()
	if err != nil {
		t.Fatalf("FindBestResult 失败: %v", err)
	}
	if best == nil || !best.Matched {
		t.Fatalf("应找到最佳结果: %v", best)
	}
}

func dataURL(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("编码 PNG 失败: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestTemplateDataURL(t *testing.T) {
	tpl := texture(10, 10, 1)
	src := canvas(100, 100, 0)
	paste(src, tpl, 10, 10)
	paste(src, tpl, 60, 60)

	tmpl := NewTemplate(dataURL(t, tpl), WithTemplateCutoff(0.9))
	defer tmpl.Close()

	if s := tmpl.String(); s != "Template(data:image/...)" {
		t.Errorf("String 错误: %q", s)
	}

	results, err := FindAllLocations(src, tmpl)
	if err != nil {
		t.Fatalf("FindAllLocations 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("期望 2 个结果, 实际 %d", len(results))
	}

	// 第二次调用走缓存
	pos, err := FindLocation(src, tmpl)
	if err != nil {
		t.Fatalf("FindLocation 失败: %v", err)
	}
	if pos == nil || (*pos != Point{X: 15, Y: 15} && *pos != Point{X: 65, Y: 65}) {
		t.Errorf("中心点错误: %v", pos)
	}
}

func TestTemplateFromFile(t *testing.T) {
	dir := t.TempDir()
	tpl := texture(10, 10, 1)
	if err := imaging.Save(tpl, filepath.Join(dir, "icon.png")); err != nil {
		t.Fatalf("保存模板失败: %v", err)
	}

	src := canvas(100, 100, 0)
	paste(src, tpl, 60, 60)
	source := toMat(t, src)
	defer source.Close()

	results, err := FindAllLocations(source, "icon.png",
		WithTemplateBaseDir(dir),
		WithTemplateCutoff(0.9),
		WithTemplateConfirm(ConfirmNormedAbsDiff, 0.2, 1),
		WithTemplateClusterMode(heatmap.ClusterConnected),
	)
	if err != nil {
		t.Fatalf("FindAllLocations 失败: %v", err)
	}
	if len(results) != 1 || results[0].Position != (Point{X: 60, Y: 60}) {
		t.Errorf("期望 (60, 60) 处 1 个结果, 实际 %v", results)
	}

	// 没有 BaseDir 时相对当前工作目录解析
	if _, err := FindAllLocations(source, "icon.png"); err == nil {
		t.Error("未设置 BaseDir 时不应找到模板")
	}
	abs := NewTemplate(filepath.Join(dir, "icon.png"), WithTemplateBaseDir("/elsewhere"))
	if p := abs.path(); p != filepath.Join(dir, "icon.png") {
		t.Errorf("绝对路径不应拼接 BaseDir: %s", p)
	}

	if _, err := FindAllLocations(source, "missing.png", WithTemplateBaseDir(dir)); err == nil {
		t.Error("模板不存在时应返回错误")
	}
	if _, err := FindAllLocations(source, 42); err == nil {
		t.Error("不支持的模板类型应返回错误")
	}
}

func TestReadImageFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.gif")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建文件失败: %v", err)
	}
	if err := gif.Encode(f, texture(24, 16, 2), nil); err != nil {
		f.Close()
		t.Fatalf("编码 GIF 失败: %v", err)
	}
	f.Close()

	mat, err := ReadImage(path)
	if err != nil {
		t.Fatalf("ReadImage 失败: %v", err)
	}
	defer mat.Close()

	if w, h := GetResolution(mat); w != 24 || h != 16 {
		t.Errorf("分辨率错误: %dx%d", w, h)
	}
	if mat.Channels() != 3 {
		t.Errorf("期望 3 通道, 实际 %d", mat.Channels())
	}

	missing, err := ReadImage(filepath.Join(t.TempDir(), "none.png"))
	if err == nil {
		t.Error("文件不存在时应返回错误")
	}
	if !reflect.ValueOf(missing).IsZero() {
		t.Error("出错时不应分配 Mat")
	}
}

func TestTemplateReadErrorAllocatesNothing(t *testing.T) {
	for _, name := range []string{
		filepath.Join(t.TempDir(), "none.png"),
		"data:image/png;base64,@@@",
		"data:image/png,plain",
	} {
		tmpl := NewTemplate(name)
		mat, err := tmpl.readImage()
		if err == nil {
			t.Errorf("%s: 应返回错误", tmpl)
		}
		if !reflect.ValueOf(mat).IsZero() {
			t.Errorf("%s: 出错时不应分配 Mat", tmpl)
		}
		if tmpl.cachedMat != nil {
			t.Errorf("%s: 出错时不应缓存", tmpl)
		}
		tmpl.Close()
	}
}

func TestDrawBounds(t *testing.T) {
	source := toMat(t, canvas(100, 100, 0))
	defer source.Close()

	results := []MatchResult{
		{Matched: true, Position: Point{X: 10, Y: 10}, Strength: 0.99, Size: Size{W: 10, H: 10}},
		{Matched: false, Position: Point{X: 60, Y: 60}, Strength: 0.91, Size: Size{W: 10, H: 10}},
	}

	drawn := DrawBounds(source, results)
	defer drawn.Close()

	if drawn.Cols() != 100 || drawn.Rows() != 100 || drawn.Channels() != 3 {
		t.Fatalf("标注图像尺寸错误")
	}

	// 边框下边缘 (BGR)
	if v := drawn.GetVecbAt(20, 15); v[0] != 0 || v[1] != 255 || v[2] != 0 {
		t.Errorf("确认结果应为绿色边框, 实际 %v", v)
	}
	if v := drawn.GetVecbAt(70, 65); v[0] != 0 || v[1] != 0 || v[2] != 255 {
		t.Errorf("未确认结果应为红色边框, 实际 %v", v)
	}
	if v := source.GetVecbAt(20, 15); v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Error("DrawBounds 不应修改原图")
	}

	gray := gocv.NewMatWithSize(50, 50, gocv.MatTypeCV8UC1)
	defer gray.Close()
	drawnGray := DrawBounds(gray, nil)
	defer drawnGray.Close()
	if drawnGray.Channels() != 3 {
		t.Errorf("灰度图标注后应为 3 通道")
	}
}

func TestWriteHeatmap(t *testing.T) {
	source, search := twoPatchScene(t)
	defer source.Close()
	defer search.Close()

	hm, _, _, err := Correlate(source, search, MatchMethodCcorrNormed)
	if err != nil {
		t.Fatalf("Correlate 失败: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "heat.png")
	if err := WriteHeatmap(path, hm); err != nil {
		t.Fatalf("WriteHeatmap 失败: %v", err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("读取热图失败: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 91 || b.Dy() != 91 {
		t.Errorf("热图图像尺寸错误: %v", b)
	}

	if err := WriteHeatmap(path, nil); err == nil {
		t.Error("nil 热图应返回错误")
	}

	annotated := filepath.Join(t.TempDir(), "annotated.png")
	if err := WriteAnnotated(annotated, source, []MatchResult{{Matched: true, Size: Size{W: 10, H: 10}}}); err != nil {
		t.Fatalf("WriteAnnotated 失败: %v", err)
	}
	if _, err := os.Stat(annotated); err != nil {
		t.Errorf("标注图像未保存: %v", err)
	}
}
