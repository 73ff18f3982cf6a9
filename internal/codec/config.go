package codec

import (
	"github.com/lk2023060901/serde-go/internal/framer"
	"github.com/lk2023060901/serde-go/internal/serializer"
	"github.com/lk2023060901/serde-go/pkg/log"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
	"github.com/lk2023060901/serde-go/pkg/util/viper"
)

const defaultMinCompressSize = 256

type CompressionConfig struct {
	Enable bool `mapstructure:"enable" json:"enable"`
	// MinSize 为触发压缩的最小载荷字节数，更小的载荷原样发送。
	MinSize     int `mapstructure:"min-size" json:"min-size"`
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
}

type EncryptionConfig struct {
	Enable bool `mapstructure:"enable" json:"enable"`
	// Key/MACKey 为十六进制密钥，NewFromConfig 未传入 Encryptor 时据此创建 AES-GCM+HMAC 加密器。
	Key    string `mapstructure:"key" json:"key"`
	MACKey string `mapstructure:"mac-key" json:"mac-key"`
}

// Config 为帧编解码器配置，可从 YAML/JSON 文件加载。
type Config struct {
	// Format 为写出时使用的格式：binary、text 或 text-pretty。读入时以帧头为准。
	Format       string            `mapstructure:"format" json:"format"`
	Compression  CompressionConfig `mapstructure:"compression" json:"compression"`
	Encryption   EncryptionConfig  `mapstructure:"encryption" json:"encryption"`
	MaxFrameSize uint32            `mapstructure:"max-frame-size" json:"max-frame-size"`
	// Log 非空时为编解码器创建独立的 Logger。
	Log *log.Config `mapstructure:"log" json:"log"`
}

// DefaultConfig 返回二进制格式、关闭压缩与加密的配置。
func DefaultConfig() *Config {
	return &Config{
		Format:       serializer.KindBinary.String(),
		Compression:  CompressionConfig{MinSize: defaultMinCompressSize},
		MaxFrameSize: framer.DefaultMaxFrameSize,
	}
}

// LoadConfig 从 path 读取配置，未出现的键保持 DefaultConfig 的取值。
// 文件中已有的键可由 SERDE_ 前缀的环境变量覆盖。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := viper.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := serializer.ByName(c.Format); err != nil {
		return err
	}
	if c.Compression.MinSize < 0 {
		return merr.WrapErrParameterInvalidMsg("compression.min-size must be >= 0, got %d", c.Compression.MinSize)
	}
	return nil
}
