package config

import (
	"errors"
	"os"
	"time"

	"github.com/zeromicro/go-zero/core/conf"

	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/pkg/retry"
)

type LogConfig struct {
	Format   string `json:"format,default=console,options=console|json"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`                            // 日志目录，为空则只输出到 stderr
	Level    string `json:"level,default=info"`                          // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`                           // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// NetworkConfig RPC 端点配置；profile 由 SOLANA_NETWORK 决定
type NetworkConfig struct {
	MainEndpoints []string `json:"main_endpoints,optional"` // 覆盖默认 mainnet 端点列表
	DevEndpoints  []string `json:"dev_endpoints,optional"`  // 覆盖默认 devnet 端点列表
	Commitment    string   `json:"commitment,default=confirmed,options=processed|confirmed|finalized"`
}

// RetryPolicyConfig 单个调用点的重试策略，零值字段使用内置默认
type RetryPolicyConfig struct {
	MaxAttempts    int     `json:"max_attempts,optional"`
	InitialDelayMs int     `json:"initial_delay_ms,optional"`
	Multiplier     float64 `json:"multiplier,optional"`
}

func (c RetryPolicyConfig) ToPolicy(fallback retry.Policy) retry.Policy {
	p := fallback
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.InitialDelayMs > 0 {
		p.InitialDelay = time.Duration(c.InitialDelayMs) * time.Millisecond
	}
	if c.Multiplier >= 1 {
		p.Multiplier = c.Multiplier
	}
	return p
}

// RetryConfig 各调用点的重试策略
type RetryConfig struct {
	Probe  RetryPolicyConfig `json:"probe,optional"`  // 端点探活
	Query  RetryPolicyConfig `json:"query,optional"`  // 只读查询
	Submit RetryPolicyConfig `json:"submit,optional"` // 交易提交
}

// SubmitConfig 交易确认轮询
type SubmitConfig struct {
	ConfirmPollMs   int `json:"confirm_poll_ms,default=500"`  // 轮询签名状态的间隔（毫秒）
	ConfirmTimeoutS int `json:"confirm_timeout_s,default=60"` // 单次提交等待确认的上限（秒）
}

// PathsConfig 状态文件位置
type PathsConfig struct {
	TokenInfo      string   `json:"token_info,default=token-info.json"`
	History        string   `json:"history,default=transaction-history.json"`
	Env            string   `json:"env,default=.env"`
	ProgramKeypair string   `json:"program_keypair,default=program-keypair.json"`
	Keypairs       []string `json:"keypairs,optional"` // 部署者密钥的查找顺序，KEYPAIR_PATH 始终最先
}

// TokenConfig deploy 的默认参数
type TokenConfig struct {
	Decimals      uint8  `json:"decimals,default=9"`
	InitialSupply string `json:"initial_supply,default=1000000"` // 整币数量
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置，Brokers 为空时不发布分发事件
type KafkaProducerConfig struct {
	Brokers       string `json:"brokers,optional"`          // Kafka broker 地址，多个用英文逗号分隔
	BatchSize     int    `json:"batch_size,optional"`       // 批处理大小（单位字节）
	LingerMs      int    `json:"linger_ms,optional"`        // 批处理最大延迟（毫秒）
	Topic         string `json:"topic,default=token-distribution"`
	Partitions    int    `json:"partitions,default=4"`
	SendTimeoutMs int    `json:"send_timeout_ms,default=5000"` // 单条事件等待 ack 的超时
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

// LedgerLockConfig 多操作员共享状态文件时的 Redis 建议锁，RedisAddr 为空则不加锁
type LedgerLockConfig struct {
	RedisAddr     string `json:"redis_addr,optional"`
	RedisPassword string `json:"redis_password,optional"`
	RedisDB       int    `json:"redis_db,optional"`
	TTLMs         int    `json:"ttl_ms,default=30000"`
	WaitMs        int    `json:"wait_ms,default=10000"`
}

// MetricsConfig Textfile 不为空时在退出前写出 Prometheus 指标
type MetricsConfig struct {
	Textfile string `json:"textfile,optional"`
}

// DeployerConfig 是主配置结构体
type DeployerConfig struct {
	LogConf           LogConfig           `json:"logger,optional"`
	Network           NetworkConfig       `json:"network,optional"`
	Retry             RetryConfig         `json:"retry,optional"`
	Submit            SubmitConfig        `json:"submit,optional"`
	Paths             PathsConfig         `json:"paths,optional"`
	Token             TokenConfig         `json:"token,optional"`
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer,optional"`
	LedgerLock        LedgerLockConfig    `json:"ledger_lock,optional"`
	Metrics           MetricsConfig       `json:"metrics,optional"`
}

// ProbePolicy / QueryPolicy / SubmitPolicy 合并配置与内置默认
func (c *DeployerConfig) ProbePolicy() retry.Policy  { return c.Retry.Probe.ToPolicy(retry.ProbePolicy) }
func (c *DeployerConfig) QueryPolicy() retry.Policy  { return c.Retry.Query.ToPolicy(retry.QueryPolicy) }
func (c *DeployerConfig) SubmitPolicy() retry.Policy { return c.Retry.Submit.ToPolicy(retry.SubmitPolicy) }

// Load 读取配置文件（支持 ${VAR} 环境变量展开）；文件不存在时全部使用默认值
func Load(path string) (DeployerConfig, error) {
	var c DeployerConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := conf.Load(path, &c, conf.UseEnv()); err != nil {
				return c, err
			}
			c.normalize()
			return c, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return c, err
		}
	}
	if err := conf.FillDefault(&c); err != nil {
		return c, err
	}
	c.normalize()
	return c, nil
}

// normalize 可选段落整体缺省时 tag 默认值可能没有生效，这里兜底
func (c *DeployerConfig) normalize() {
	setDefault(&c.LogConf.Format, "console")
	setDefault(&c.LogConf.Level, "info")
	setDefault(&c.Network.Commitment, "confirmed")
	setDefault(&c.Paths.TokenInfo, "token-info.json")
	setDefault(&c.Paths.History, "transaction-history.json")
	setDefault(&c.Paths.Env, ".env")
	setDefault(&c.Paths.ProgramKeypair, "program-keypair.json")
	setDefault(&c.Token.InitialSupply, "1000000")
	setDefault(&c.KafkaProducerConf.Topic, "token-distribution")
	if c.Token.Decimals == 0 {
		c.Token.Decimals = 9
	}
	if c.Submit.ConfirmPollMs <= 0 {
		c.Submit.ConfirmPollMs = 500
	}
	if c.Submit.ConfirmTimeoutS <= 0 {
		c.Submit.ConfirmTimeoutS = 60
	}
	if c.KafkaProducerConf.Partitions <= 0 {
		c.KafkaProducerConf.Partitions = 4
	}
	if c.KafkaProducerConf.SendTimeoutMs <= 0 {
		c.KafkaProducerConf.SendTimeoutMs = 5000
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
