package viper

import (
	"path/filepath"
	"strings"

	spfviper "github.com/spf13/viper"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// EnvPrefix 为覆盖配置项的环境变量前缀，例如 SERDE_COMPRESSION_MIN_SIZE 覆盖 compression.min-size。
const EnvPrefix = "SERDE"

// Config 封装 spf13/viper 实例，只接受 YAML/JSON 配置文件。
type Config struct {
	v    *spfviper.Viper
	path string
}

// New 创建一个空的 Config，LoadFile 之前调用 Unmarshal/UnmarshalKey 会返回 ErrParameterInvalid。
func New() *Config {
	return &Config{}
}

// configType 由扩展名推断配置类型，不支持的扩展名返回空串。
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

// LoadFile 读取 path 指向的配置文件，已出现在文件中的键可由 EnvPrefix 环境变量覆盖。
func (c *Config) LoadFile(path string) error {
	typ := configType(path)
	if typ == "" {
		return merr.WrapErrParameterInvalid("a .yaml, .yml or .json file", path, "unsupported config file")
	}

	v := spfviper.New()
	v.SetConfigFile(path)
	v.SetConfigType(typ)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return merr.WrapErrParameterInvalidMsg("read config %s: %v", path, err)
	}
	c.v, c.path = v, path
	return nil
}

func (c *Config) loaded() error {
	if c.v == nil {
		return merr.WrapErrParameterInvalidMsg("config not loaded")
	}
	return nil
}

// Unmarshal 将完整配置反序列化到 dst，dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	if err := c.loaded(); err != nil {
		return err
	}
	if err := c.v.Unmarshal(dst); err != nil {
		return merr.WrapErrParameterInvalidMsg("decode config %s: %v", c.path, err)
	}
	return nil
}

// UnmarshalKey 将 key 对应的子配置反序列化到 dst。key 不存在时 dst 保持不变。
func (c *Config) UnmarshalKey(key string, dst any) error {
	if err := c.loaded(); err != nil {
		return err
	}
	if !c.v.IsSet(key) {
		return nil
	}
	if err := c.v.UnmarshalKey(key, dst); err != nil {
		return merr.WrapErrParameterInvalidMsg("decode config %s key %s: %v", c.path, key, err)
	}
	return nil
}

// Load 读取 path 并反序列化到 dst。
func Load(path string, dst any) error {
	c := New()
	if err := c.LoadFile(path); err != nil {
		return err
	}
	return c.Unmarshal(dst)
}
