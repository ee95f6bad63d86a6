package cv

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// DefaultCutoff 默认候选阈值（相对最佳得分的比例）
var DefaultCutoff = 0.95

// Template 模板
type Template struct {
	// Filename 模板文件路径或 data:image/...;base64 URL
	Filename string
	// Cutoff 候选阈值
	Cutoff float64
	// Params 匹配与确认参数
	Params MatchParameters
	// Tunables 多目标匹配可调常量
	Tunables Tunables
	// BaseDir 解析相对路径模板的目录，为空时相对当前工作目录
	BaseDir string

	// 缓存的模板图像
	cachedMat *gocv.Mat
}

// TemplateOption 模板选项
type TemplateOption func(*Template)

// NewTemplate 创建新的 Template
func NewTemplate(filename string, opts ...TemplateOption) *Template {
	t := &Template{
		Filename: filename,
		Cutoff:   DefaultCutoff,
		Params:   DefaultMatchParameters(),
		Tunables: DefaultTunables(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithTemplateCutoff 设置候选阈值
func WithTemplateCutoff(cutoff float64) TemplateOption {
	return func(t *Template) {
		t.Cutoff = cutoff
	}
}

// WithTemplateBaseDir 设置解析模板相对路径的目录
func WithTemplateBaseDir(dir string) TemplateOption {
	return func(t *Template) {
		t.BaseDir = dir
	}
}

// WithTemplateParams 设置全部匹配参数
func WithTemplateParams(params MatchParameters) TemplateOption {
	return func(t *Template) {
		t.Params = params
	}
}

// WithTemplateTunables 设置全部可调常量
func WithTemplateTunables(tunables Tunables) TemplateOption {
	return func(t *Template) {
		t.Tunables = tunables
	}
}

// WithTemplateMatchMethod 设置匹配算法
func WithTemplateMatchMethod(method MatchMethod) TemplateOption {
	return func(t *Template) {
		t.Params.MatchMethod = method
	}
}

// WithTemplateConfirm 设置确认算法、阈值和腐蚀次数
func WithTemplateConfirm(method ConfirmMethod, threshold float64, erodePasses int) TemplateOption {
	return func(t *Template) {
		t.Params.ConfirmMethod = method
		t.Params.ConfirmThreshold = threshold
		t.Params.ErodePasses = erodePasses
	}
}

// WithTemplateClusterMode 设置聚类方式
func WithTemplateClusterMode(mode heatmap.ClusterMode) TemplateOption {
	return func(t *Template) {
		t.Tunables.ClusterMode = mode
	}
}

// MatchIn 在屏幕图像中匹配模板，返回最佳确认结果的中心点
func (t *Template) MatchIn(screen gocv.Mat) (*Point, error) {
	result, err := t.MatchResultIn(screen)
	if err != nil || result == nil {
		return nil, err
	}

	pos := result.Center()
	return &pos, nil
}

// MatchResultIn 在屏幕图像中匹配模板，返回得分最高的确认结果
func (t *Template) MatchResultIn(screen gocv.Mat) (*MatchResult, error) {
	results, err := t.MatchAllIn(screen)
	if err != nil {
		return nil, err
	}
	return bestConfirmed(results), nil
}

// MatchAllIn 在屏幕图像中查找所有匹配（包括未通过确认的结果）
func (t *Template) MatchAllIn(screen gocv.Mat) ([]MatchResult, error) {
	image, err := t.readImage()
	if err != nil {
		return nil, err
	}
	defer image.Close()

	return MultiMatch(screen, image, t.Cutoff, t.Params, t.Tunables)
}

// readImage 读取模板图像
func (t *Template) readImage() (gocv.Mat, error) {
	if t.cachedMat != nil && !t.cachedMat.Empty() {
		return t.cachedMat.Clone(), nil
	}

	var (
		mat gocv.Mat
		err error
	)
	if strings.HasPrefix(t.Filename, "data:image/") {
		mat, err = decodeDataURL(t.Filename)
	} else {
		mat, err = ReadImage(t.path())
	}
	if err != nil {
		return mat, err
	}

	cached := mat.Clone()
	if t.cachedMat != nil {
		t.cachedMat.Close()
	}
	t.cachedMat = &cached
	return mat, nil
}

// path 模板文件的实际路径
func (t *Template) path() string {
	if t.BaseDir == "" || filepath.IsAbs(t.Filename) {
		return t.Filename
	}
	return filepath.Join(t.BaseDir, t.Filename)
}

// decodeDataURL 解码 data:image/...;base64,xxx 格式的图像
func decodeDataURL(url string) (gocv.Mat, error) {
	idx := strings.Index(url, ";base64,")
	if idx < 0 {
		return gocv.Mat{}, fmt.Errorf("不支持的 data URL: 缺少 base64 数据")
	}
	data, err := base64.StdEncoding.DecodeString(url[idx+len(";base64,"):])
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("解码 base64 失败: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("解码图像失败: %w", err)
	}
	return ImageToMat(img)
}

// Close 释放资源
func (t *Template) Close() {
	if t.cachedMat != nil {
		t.cachedMat.Close()
		t.cachedMat = nil
	}
}

// String 返回字符串表示
func (t *Template) String() string {
	name := t.Filename
	if strings.HasPrefix(name, "data:image/") {
		name = "data:image/..."
	}
	return fmt.Sprintf("Template(%s)", name)
}

// FindLocation 便捷函数：在源图像中查找模板，返回最佳确认结果的中心点
func FindLocation(screen, template interface{}, opts ...TemplateOption) (*Point, error) {
	screenMat, tmpl, cleanup, err := prepare(screen, template, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return tmpl.MatchIn(screenMat)
}

// FindAllLocations 便捷函数：在源图像中查找模板的所有实例
func FindAllLocations(screen, template interface{}, opts ...TemplateOption) ([]MatchResult, error) {
	screenMat, tmpl, cleanup, err := prepare(screen, template, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return tmpl.MatchAllIn(screenMat)
}

// prepare 加载源图像并构造模板；模板为路径时由本函数负责释放
func prepare(screen, template interface{}, opts []TemplateOption) (gocv.Mat, *Template, func(), error) {
	var tmpl *Template
	owned := false
	switch v := template.(type) {
	case string:
		tmpl = NewTemplate(v, opts...)
		owned = true
	case *Template:
		tmpl = v
	default:
		return gocv.Mat{}, nil, nil, fmt.Errorf("不支持的模板类型: %T", template)
	}

	// 加载源图像
	screenMat, err := LoadImageInput(screen)
	if err != nil {
		if owned {
			tmpl.Close()
		}
		return gocv.Mat{}, nil, nil, fmt.Errorf("加载源图像失败: %w", err)
	}

	cleanup := func() {
		screenMat.Close()
		if owned {
			tmpl.Close()
		}
	}
	return screenMat, tmpl, cleanup, nil
}
