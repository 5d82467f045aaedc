package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Log    LogConfig    `toml:"log"`
	Export ExportConfig `toml:"export"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int  `toml:"port"`
	DevMode     bool `toml:"dev_mode"`
	OpenBrowser bool `toml:"open_browser"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir   string `toml:"data_dir"`   // 结果工作簿所在目录（相对路径基于可执行文件目录）
	IndexPath string `toml:"index_path"` // SQLite 索引文件，留空使用内存库
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	Found         bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        8501,
			DevMode:     false,
			OpenBrowser: true,
		},
		Data: DataConfig{
			DataDir:   "data",
			IndexPath: "",
		},
		Log: LogConfig{
			Level: "info",
		},
		Export: ExportConfig{
			TTLMinutes: 10,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息；path 为空时使用默认位置
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			applyEnv(config)
			return config, info, nil
		}
		return nil, info, err
	}
	info.Found = true
	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	applyEnv(config)
	return config, info, nil
}

// 环境变量覆盖（用于容器 / 本地运行）
func applyEnv(config *AppConfig) {
	if v := os.Getenv("EFFCURVE_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("EFFCURVE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
}

// SaveConfig 保存配置到指定路径
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := Encode(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Encode 序列化为 TOML
func Encode(config *AppConfig) ([]byte, error) {
	return toml.Marshal(config)
}

// ResolveDataDir 数据目录绝对路径；相对路径基于可执行文件目录
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}
