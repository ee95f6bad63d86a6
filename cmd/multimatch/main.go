package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/zoeyai/multimatch/internal/logger"
	"github.com/zoeyai/multimatch/pkg/capture"
	"github.com/zoeyai/multimatch/pkg/config"
	"github.com/zoeyai/multimatch/pkg/vision"
	"github.com/zoeyai/multimatch/pkg/vision/cv"
	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// matchOverrides 命令行上的匹配参数，只有显式指定的才覆盖配置文件
type matchOverrides struct {
	method           string
	confirm          string
	confirmThreshold float64
	erode            int
	bailOut          float64
	maxCandidates    int
	proximity        float64
	cluster          string
	logLevel         string
}

// report -json 输出
type report struct {
	Source   string               `json:"source"`
	Template string               `json:"template"`
	Cutoff   float64              `json:"cutoff"`
	Capture  *capture.Meta        `json:"capture,omitempty"`
	Results  []vision.MatchResult `json:"results"`
}

func main() {
	var (
		ov           matchOverrides
		useScreen    = flag.Bool("screen", false, "截取屏幕作为源图像")
		region       = flag.String("region", "", "截图区域 x,y,w,h (配合 -screen)")
		configFile   = flag.String("config", "", "配置文件路径 (默认 ~/.multimatch/config.json)")
		saveConfig   = flag.Bool("save", false, "保存当前参数到配置文件")
		annotatePath = flag.String("annotate", "", "保存带匹配边框的结果图")
		heatmapPath  = flag.String("heatmap", "", "保存相关度热图")
		jsonOutput   = flag.Bool("json", false, "以 JSON 格式输出结果")
		logFile      = flag.String("log-file", "", "日志文件路径")
		showVersion  = flag.Bool("version", false, "显示版本信息")
		showHelp     = flag.Bool("help", false, "显示帮助信息")
	)
	flag.StringVar(&ov.method, "method", "", "匹配算法 (ccorr-normed, ccoeff-normed, sqdiff-normed)")
	flag.StringVar(&ov.confirm, "confirm", "", "确认算法 (normed-absdiff, absdiff)")
	flag.Float64Var(&ov.confirmThreshold, "confirm-threshold", 0, "确认二值化阈值 [0, 1]")
	flag.IntVar(&ov.erode, "erode", 0, "腐蚀次数")
	flag.Float64Var(&ov.bailOut, "bail-out", 0, "最佳得分下限")
	flag.IntVar(&ov.maxCandidates, "max-candidates", 0, "候选点数量上限")
	flag.Float64Var(&ov.proximity, "proximity", 0, "聚类邻近范围占模板尺寸的比例")
	flag.StringVar(&ov.cluster, "cluster", "", "聚类方式 (greedy, connected)")
	flag.StringVar(&ov.logLevel, "log-level", "", "日志级别 (DEBUG, INFO, WARN, ERROR)")

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *showHelp {
		printHelp()
		return
	}

	// 加载配置
	manager := config.GetDefaultManager()
	if *configFile != "" {
		manager = config.NewManagerWithFile(*configFile)
	}
	cfg, err := manager.Load()
	if err != nil {
		logger.Warn("加载配置失败: %v", err)
	}

	// 命令行参数优先级高于配置文件
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyOverrides(cfg, &ov, set)

	logger.Default().SetLevel(cfg.Level())
	if *logFile != "" {
		if err := logger.Default().SetFile(*logFile); err != nil {
			logger.Warn("打开日志文件失败: %v", err)
		}
	}
	defer logger.Default().Close()

	if *saveConfig {
		if err := manager.Save(cfg); err != nil {
			logger.Error("保存配置失败: %v", err)
			os.Exit(1)
		}
		logger.Info("配置已保存到 %s", manager.GetConfigFile())
	}

	if *saveConfig && flag.NArg() == 0 {
		return
	}

	pos, err := parseArgs(flag.Args(), *useScreen)
	if errors.Is(err, errNoArgs) {
		// 没有参数时运行自检
		os.Exit(runSelfTest(os.Stdout))
	}
	if err != nil {
		logger.Error("%v", err)
		printHelp()
		os.Exit(2)
	}
	sourcePath, templatePath := pos.source, pos.template
	if pos.hasCutoff {
		cfg.Cutoff = pos.cutoff
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("%v", err)
		os.Exit(2)
	}

	// 加载源图像
	var (
		source gocv.Mat
		meta   *capture.Meta
	)
	if *useScreen {
		var m capture.Meta
		source, m, err = captureSource(*region)
		meta = &m
		sourcePath = "screen"
	} else {
		source, err = cv.ReadImage(sourcePath)
	}
	if err != nil {
		logger.Error("加载源图像失败: %v", err)
		os.Exit(1)
	}
	defer source.Close()

	search, err := vision.LoadImage(templatePath)
	if err != nil {
		logger.Error("加载模板失败: %v", err)
		os.Exit(1)
	}
	defer search.Close()

	results, hm, err := vision.MultiMatch(source, search,
		vision.WithCutoff(cfg.Cutoff),
		vision.WithParams(cfg.Params()),
		vision.WithTunables(cfg.Tunables()),
	)
	if hm != nil && *heatmapPath != "" {
		if err := vision.WriteHeatmap(*heatmapPath, hm); err != nil {
			logger.Warn("%v", err)
		} else {
			logger.Info("热图已保存到 %s", *heatmapPath)
		}
	}
	if err != nil {
		if errors.Is(err, vision.ErrTooManyCandidates) {
			logger.Error("%v (请提高 cutoff 或使用更有区分度的模板)", err)
		} else {
			logger.Error("匹配失败: %v", err)
		}
		os.Exit(1)
	}

	if *annotatePath != "" {
		if err := vision.WriteAnnotated(*annotatePath, source, results); err != nil {
			logger.Warn("%v", err)
		} else {
			logger.Info("标注图像已保存到 %s", *annotatePath)
		}
	}

	if meta != nil {
		results = capture.AdjustResults(results, *meta)
	}

	if *jsonOutput {
		out := report{
			Source:   sourcePath,
			Template: templatePath,
			Cutoff:   cfg.Cutoff,
			Capture:  meta,
			Results:  results,
		}
		if out.Results == nil {
			out.Results = []vision.MatchResult{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logger.Error("输出 JSON 失败: %v", err)
			os.Exit(1)
		}
		return
	}

	printResults(results)
}

// positional 位置参数: [源图像] 模板 [cutoff]
type positional struct {
	source    string
	template  string
	cutoff    float64
	hasCutoff bool
}

var errNoArgs = errors.New("缺少参数")

// parseArgs 解析位置参数，-screen 时不需要源图像
// 没有任何参数且不截屏时返回 errNoArgs
func parseArgs(args []string, screen bool) (positional, error) {
	var p positional
	if !screen {
		if len(args) == 0 {
			return p, errNoArgs
		}
		p.source, args = args[0], args[1:]
	}
	if len(args) == 0 {
		return p, fmt.Errorf("参数错误: 缺少模板图像")
	}
	if len(args) > 2 {
		return p, fmt.Errorf("参数错误: 多余的参数 %v", args[2:])
	}

	p.template = args[0]
	if len(args) == 2 {
		cutoff, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return p, fmt.Errorf("cutoff 无效: %s", args[1])
		}
		p.cutoff, p.hasCutoff = cutoff, true
	}
	return p, nil
}

// applyOverrides 把显式指定的命令行参数写入配置
func applyOverrides(cfg *config.MatchConfig, ov *matchOverrides, set map[string]bool) {
	if set["method"] {
		cfg.MatchMethod = cv.MatchMethod(ov.method)
	}
	if set["confirm"] {
		cfg.ConfirmMethod = cv.ConfirmMethod(ov.confirm)
	}
	if set["confirm-threshold"] {
		cfg.ConfirmThreshold = ov.confirmThreshold
	}
	if set["erode"] {
		cfg.ErodePasses = ov.erode
	}
	if set["bail-out"] {
		cfg.BailOut = ov.bailOut
	}
	if set["max-candidates"] {
		cfg.MaxCandidates = ov.maxCandidates
	}
	if set["proximity"] {
		cfg.ProximityScale = ov.proximity
	}
	if set["cluster"] {
		cfg.ClusterMode = heatmap.ClusterMode(ov.cluster)
	}
	if set["log-level"] {
		cfg.LogLevel = ov.logLevel
	}
}

// captureSource 截取全屏或指定区域
func captureSource(region string) (gocv.Mat, capture.Meta, error) {
	logger.Debug("显示器数量: %d", capture.DisplayCount())
	if region == "" {
		return capture.Screen()
	}
	x, y, w, h, err := parseRegion(region)
	if err != nil {
		return gocv.Mat{}, capture.Meta{}, err
	}
	return capture.Region(x, y, w, h)
}

// parseRegion 解析 "x,y,w,h"
func parseRegion(s string) (x, y, w, h int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("区域格式应为 x,y,w,h: %q", s)
	}
	var v [4]int
	for i, p := range parts {
		v[i], err = strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("区域格式应为 x,y,w,h: %q", s)
		}
	}
	return v[0], v[1], v[2], v[3], nil
}

// printResults 打印匹配结果
func printResults(results []vision.MatchResult) {
	if len(results) == 0 {
		fmt.Println("未找到匹配")
		return
	}

	confirmed := 0
	for i, r := range results {
		if r.Matched {
			confirmed++
		}
		fmt.Printf("%d. %s\n", i+1, r)
	}
	fmt.Printf("共 %d 个结果，%d 个通过确认\n", len(results), confirmed)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("multimatch v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("multimatch - 多目标模板匹配工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  multimatch [选项] source template [cutoff]")
	fmt.Println("  multimatch -screen [选项] template [cutoff]")
	fmt.Println("  multimatch            运行内置自检")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -screen                   截取屏幕作为源图像")
	fmt.Println("  -region string            截图区域 x,y,w,h")
	fmt.Println("  -config string            配置文件路径")
	fmt.Println("  -save                     保存当前参数到配置文件")
	fmt.Println("  -annotate string          保存带匹配边框的结果图")
	fmt.Println("  -heatmap string           保存相关度热图")
	fmt.Println("  -json                     以 JSON 格式输出结果")
	fmt.Println("  -method string            匹配算法 (ccorr-normed, ccoeff-normed, sqdiff-normed)")
	fmt.Println("  -confirm string           确认算法 (normed-absdiff, absdiff)")
	fmt.Println("  -confirm-threshold float  确认二值化阈值 [0, 1]")
	fmt.Println("  -erode int                腐蚀次数")
	fmt.Println("  -bail-out float           最佳得分下限")
	fmt.Println("  -max-candidates int       候选点数量上限")
	fmt.Println("  -proximity float          聚类邻近范围占模板尺寸的比例")
	fmt.Println("  -cluster string           聚类方式 (greedy, connected)")
	fmt.Println("  -log-level string         日志级别 (DEBUG, INFO, WARN, ERROR)")
	fmt.Println("  -log-file string          日志文件路径")
	fmt.Println("  -version                  显示版本信息")
	fmt.Println("  -help                     显示帮助信息")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 在截图中查找所有图标")
	fmt.Println("  multimatch screen.png icon.png 0.9")
	fmt.Println()
	fmt.Println("  # 在屏幕上查找并输出 JSON")
	fmt.Println("  multimatch -screen -json icon.png 0.9")
	fmt.Println()
	fmt.Println("  # 保存标注图和热图")
	fmt.Println("  multimatch -annotate out.png -heatmap heat.png screen.png icon.png")
	fmt.Println()
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
}
