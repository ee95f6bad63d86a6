package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zoeyai/multimatch/internal/logger"
	"github.com/zoeyai/multimatch/pkg/vision/cv"
	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// MatchConfig 匹配配置
type MatchConfig struct {
	Cutoff           float64             `json:"cutoff"`
	MatchMethod      cv.MatchMethod      `json:"match_method"`
	ConfirmMethod    cv.ConfirmMethod    `json:"confirm_method"`
	ConfirmThreshold float64             `json:"confirm_threshold"`
	ErodePasses      int                 `json:"erode_passes"`
	BailOut          float64             `json:"bail_out"`
	MaxCandidates    int                 `json:"max_candidates"`
	ProximityScale   float64             `json:"proximity_scale"`
	ClusterMode      heatmap.ClusterMode `json:"cluster_mode"`
	LogLevel         string              `json:"log_level"`
}

// DefaultMatchConfig 默认匹配配置
func DefaultMatchConfig() *MatchConfig {
	params := cv.DefaultMatchParameters()
	tunables := cv.DefaultTunables()
	return &MatchConfig{
		Cutoff:           cv.DefaultCutoff,
		MatchMethod:      params.MatchMethod,
		ConfirmMethod:    params.ConfirmMethod,
		ConfirmThreshold: params.ConfirmThreshold,
		ErodePasses:      params.ErodePasses,
		BailOut:          tunables.BailOut,
		MaxCandidates:    tunables.MaxCandidates,
		ProximityScale:   tunables.ProximityScale,
		ClusterMode:      tunables.ClusterMode,
		LogLevel:         "INFO",
	}
}

// Params 转换为匹配参数
func (c *MatchConfig) Params() cv.MatchParameters {
	return cv.MatchParameters{
		MatchMethod:      c.MatchMethod,
		ConfirmMethod:    c.ConfirmMethod,
		ConfirmThreshold: c.ConfirmThreshold,
		ErodePasses:      c.ErodePasses,
	}
}

// Tunables 转换为可调常量
func (c *MatchConfig) Tunables() cv.Tunables {
	return cv.Tunables{
		BailOut:        c.BailOut,
		MaxCandidates:  c.MaxCandidates,
		ProximityScale: c.ProximityScale,
		ClusterMode:    c.ClusterMode,
	}
}

// Validate 校验配置
func (c *MatchConfig) Validate() error {
	if !(c.Cutoff > 0 && c.Cutoff <= 1) {
		return fmt.Errorf("%w: cutoff 必须在 (0, 1] 范围内: %v", cv.ErrInvalidParameter, c.Cutoff)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	return c.Tunables().Validate()
}

// Level 日志级别，无法识别时为 INFO
func (c *MatchConfig) Level() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return NewManagerWithDir(filepath.Join(homeDir, ".multimatch"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithFile 使用指定配置文件创建配置管理器
func NewManagerWithFile(configFile string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(configFile),
		configFile: configFile,
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置
// 文件不存在时返回默认配置；文件中缺少的字段保持默认值
func (m *Manager) Load() (*MatchConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.configFile)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMatchConfig(), nil
	}
	if err != nil {
		return DefaultMatchConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultMatchConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("配置文件无效: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *MatchConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*MatchConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *MatchConfig) error {
	return defaultManager.Save(config)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
