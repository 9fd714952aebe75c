package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/spf13/viper"
)

// ConfigMode 配置模式
type ConfigMode string

const (
	// ModeLocal 本地配置模式（文件 + 环境变量）
	ModeLocal ConfigMode = "local"
	// ModeNacos Nacos配置中心模式
	ModeNacos ConfigMode = "nacos"
)

// NacosConfig Nacos配置
type NacosConfig struct {
	ServerAddr string `mapstructure:"server_addr"`
	ServerPort uint64 `mapstructure:"server_port"`
	Namespace  string `mapstructure:"namespace"`
	Group      string `mapstructure:"group"`
	DataID     string `mapstructure:"data_id"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	LogDir     string `mapstructure:"log_dir"`
	CacheDir   string `mapstructure:"cache_dir"`
	TimeoutMs  uint64 `mapstructure:"timeout_ms"`
}

// Manager 配置管理器
type Manager struct {
	mode        ConfigMode
	nacosClient config_client.IConfigClient
	nacosConfig *NacosConfig
	viper       *viper.Viper
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Manager{
		mode:  ModeLocal,
		viper: v,
	}
}

// SetDefault 设置默认值（需在 LoadConfig 之前调用）
func (m *Manager) SetDefault(key string, value interface{}) {
	m.viper.SetDefault(key, value)
}

// LoadConfig 加载配置
// configPath: 本地配置文件路径（本地模式下可为空，仅使用默认值和环境变量）
// serviceName: 服务名称（用作Nacos DataID的前缀）
func (m *Manager) LoadConfig(configPath, serviceName string) error {
	mode := GetEnv("CONFIG_MODE", string(ModeLocal))
	m.mode = ConfigMode(strings.ToLower(mode))

	switch m.mode {
	case ModeNacos:
		return m.loadFromNacos(configPath, serviceName)
	case ModeLocal:
		return m.loadFromLocal(configPath)
	default:
		return fmt.Errorf("unsupported config mode: %s", mode)
	}
}

// loadFromLocal 从本地文件加载配置
func (m *Manager) loadFromLocal(configPath string) error {
	if configPath == "" {
		return nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	m.viper.SetConfigFile(configPath)
	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read local config failed: %w", err)
	}
	return nil
}

// loadFromNacos 从Nacos配置中心加载配置
func (m *Manager) loadFromNacos(configPath, serviceName string) error {
	// 1. 先从本地文件读取Nacos连接配置
	localViper := viper.New()
	localViper.SetConfigFile(configPath)
	if err := localViper.ReadInConfig(); err != nil {
		return fmt.Errorf("read nacos connection config failed: %w", err)
	}

	m.nacosConfig = &NacosConfig{}
	if err := localViper.UnmarshalKey("nacos", m.nacosConfig); err != nil {
		return fmt.Errorf("unmarshal nacos config failed: %w", err)
	}

	// 环境变量覆盖
	m.nacosConfig.ServerAddr = GetEnv("NACOS_SERVER_ADDR", m.nacosConfig.ServerAddr)
	m.nacosConfig.Namespace = GetEnv("NACOS_NAMESPACE", m.nacosConfig.Namespace)
	m.nacosConfig.Group = GetEnv("NACOS_GROUP", m.nacosConfig.Group)
	m.nacosConfig.DataID = GetEnv("NACOS_DATA_ID", m.nacosConfig.DataID)
	m.nacosConfig.Username = GetEnv("NACOS_USERNAME", m.nacosConfig.Username)
	m.nacosConfig.Password = GetEnv("NACOS_PASSWORD", m.nacosConfig.Password)

	if m.nacosConfig.DataID == "" {
		m.nacosConfig.DataID = serviceName + ".yaml"
	}
	if m.nacosConfig.ServerPort == 0 {
		m.nacosConfig.ServerPort = 8848
	}
	if m.nacosConfig.Group == "" {
		m.nacosConfig.Group = "DEFAULT_GROUP"
	}
	if m.nacosConfig.LogDir == "" {
		m.nacosConfig.LogDir = "/tmp/nacos/log"
	}
	if m.nacosConfig.CacheDir == "" {
		m.nacosConfig.CacheDir = "/tmp/nacos/cache"
	}
	if m.nacosConfig.TimeoutMs == 0 {
		m.nacosConfig.TimeoutMs = 5000
	}

	serverConfigs := []constant.ServerConfig{
		*constant.NewServerConfig(
			m.nacosConfig.ServerAddr,
			m.nacosConfig.ServerPort,
			constant.WithContextPath("/nacos"),
		),
	}

	clientConfig := *constant.NewClientConfig(
		constant.WithNamespaceId(m.nacosConfig.Namespace),
		constant.WithTimeoutMs(m.nacosConfig.TimeoutMs),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir(m.nacosConfig.LogDir),
		constant.WithCacheDir(m.nacosConfig.CacheDir),
		constant.WithUsername(m.nacosConfig.Username),
		constant.WithPassword(m.nacosConfig.Password),
	)

	configClient, err := clients.NewConfigClient(
		vo.NacosClientParam{
			ClientConfig:  &clientConfig,
			ServerConfigs: serverConfigs,
		},
	)
	if err != nil {
		return fmt.Errorf("create nacos client failed: %w", err)
	}
	m.nacosClient = configClient

	content, err := configClient.GetConfig(vo.ConfigParam{
		DataId: m.nacosConfig.DataID,
		Group:  m.nacosConfig.Group,
	})
	if err != nil {
		return fmt.Errorf("get config from nacos failed: %w", err)
	}

	m.viper.SetConfigType("yaml")
	if err := m.viper.ReadConfig(strings.NewReader(content)); err != nil {
		return fmt.Errorf("parse nacos config failed: %w", err)
	}

	return nil
}

// Watch 监听 Nacos 配置变更，onChange 在重新加载成功后调用
func (m *Manager) Watch(onChange func(err error)) error {
	if m.nacosClient == nil {
		return nil
	}
	return m.nacosClient.ListenConfig(vo.ConfigParam{
		DataId: m.nacosConfig.DataID,
		Group:  m.nacosConfig.Group,
		OnChange: func(namespace, group, dataId, data string) {
			m.viper.SetConfigType("yaml")
			onChange(m.viper.ReadConfig(strings.NewReader(data)))
		},
	})
}

// Unmarshal 解析配置到结构体
func (m *Manager) Unmarshal(rawVal interface{}) error {
	return m.viper.Unmarshal(rawVal)
}

// GetString 获取字符串配置
func (m *Manager) GetString(key string) string {
	return m.viper.GetString(key)
}

// GetMode 获取配置模式
func (m *Manager) GetMode() ConfigMode {
	return m.mode
}

// Close 关闭配置管理器
func (m *Manager) Close() error {
	if m.nacosClient != nil {
		return m.nacosClient.CancelListenConfig(vo.ConfigParam{
			DataId: m.nacosConfig.DataID,
			Group:  m.nacosConfig.Group,
		})
	}
	return nil
}
