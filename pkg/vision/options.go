package vision

import (
	"sync"

	"github.com/zoeyai/multimatch/pkg/vision/cv"
)

// Options 全局配置选项
type Options struct {
	// Cutoff 候选阈值（相对最佳得分的比例），默认 0.95
	Cutoff float64
	// Params 匹配与确认参数
	Params MatchParameters
	// Tunables 多目标匹配可调常量
	Tunables Tunables

	// TemplateDir 解析相对路径模板的目录
	TemplateDir string
}

// DefaultOptions 默认配置
var DefaultOptions = Options{
	Cutoff:   cv.DefaultCutoff,
	Params:   cv.DefaultMatchParameters(),
	Tunables: cv.DefaultTunables(),
}

var (
	optionsMu     sync.RWMutex
	globalOptions = DefaultOptions
)

// GetOptions 获取当前全局配置的副本
func GetOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return globalOptions
}

// SetOptions 设置全局配置
func SetOptions(opts Options) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	globalOptions = opts
}

// ResetOptions 重置为默认配置
func ResetOptions() {
	SetOptions(DefaultOptions)
}

// Option 配置选项函数类型
type Option func(*matchConfig)

// matchConfig 单次匹配的临时配置
type matchConfig struct {
	cutoff      float64
	params      MatchParameters
	tunables    Tunables
	templateDir string
}

// defaultMatchConfig 从全局配置生成匹配配置
func defaultMatchConfig() *matchConfig {
	opts := GetOptions()
	return &matchConfig{
		cutoff:      opts.Cutoff,
		params:      opts.Params,
		tunables:    opts.Tunables,
		templateDir: opts.TemplateDir,
	}
}

func newMatchConfig(opts []Option) *matchConfig {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCutoff 设置候选阈值
func WithCutoff(cutoff float64) Option {
	return func(c *matchConfig) {
		c.cutoff = cutoff
	}
}

// WithParams 设置全部匹配参数
func WithParams(params MatchParameters) Option {
	return func(c *matchConfig) {
		c.params = params
	}
}

// WithTunables 设置全部可调常量
func WithTunables(tunables Tunables) Option {
	return func(c *matchConfig) {
		c.tunables = tunables
	}
}

// WithTemplateDir 设置解析相对路径模板的目录
func WithTemplateDir(dir string) Option {
	return func(c *matchConfig) {
		c.templateDir = dir
	}
}

// WithMatchMethod 设置匹配算法
func WithMatchMethod(method MatchMethod) Option {
	return func(c *matchConfig) {
		c.params.MatchMethod = method
	}
}

// WithConfirmMethod 设置确认算法
func WithConfirmMethod(method ConfirmMethod) Option {
	return func(c *matchConfig) {
		c.params.ConfirmMethod = method
	}
}

// WithConfirmThreshold 设置确认二值化阈值
func WithConfirmThreshold(threshold float64) Option {
	return func(c *matchConfig) {
		c.params.ConfirmThreshold = threshold
	}
}

// WithErodePasses 设置腐蚀次数
func WithErodePasses(passes int) Option {
	return func(c *matchConfig) {
		c.params.ErodePasses = passes
	}
}

// WithBailOut 设置最佳得分下限
func WithBailOut(bailOut float64) Option {
	return func(c *matchConfig) {
		c.tunables.BailOut = bailOut
	}
}

// WithMaxCandidates 设置候选点数量上限
func WithMaxCandidates(limit int) Option {
	return func(c *matchConfig) {
		c.tunables.MaxCandidates = limit
	}
}

// WithProximityScale 设置聚类邻近范围比例
func WithProximityScale(scale float64) Option {
	return func(c *matchConfig) {
		c.tunables.ProximityScale = scale
	}
}

// WithClusterMode 设置聚类方式
func WithClusterMode(mode ClusterMode) Option {
	return func(c *matchConfig) {
		c.tunables.ClusterMode = mode
	}
}

// templateOptions 转换为 cv 模板选项
func (c *matchConfig) templateOptions() []cv.TemplateOption {
	return []cv.TemplateOption{
		cv.WithTemplateCutoff(c.cutoff),
		cv.WithTemplateParams(c.params),
		cv.WithTemplateTunables(c.tunables),
		cv.WithTemplateBaseDir(c.templateDir),
	}
}
