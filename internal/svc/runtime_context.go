package svc

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/config"
	"token-deployer-sol/internal/logic/connection"
	"token-deployer-sol/internal/logic/state"
	"token-deployer-sol/internal/logic/submitter"
	"token-deployer-sol/internal/metrics"
	"token-deployer-sol/internal/mq"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/pkg/retry"
)

// 环境变量
const (
	EnvNetwork     = "SOLANA_NETWORK"
	EnvKeypairPath = "KEYPAIR_PATH"
	EnvProgramID   = "PROGRAM_ID"
)

// 默认的部署者密钥查找顺序（KEYPAIR_PATH 之后）
var DefaultKeypairCandidates = []string{
	"./deploy-keypair.json",
	"./deployer-keypair.json",
	"./new-deploy-keypair.json",
}

// Options 测试时替换网络相关依赖
type Options struct {
	Dialer    chain.Dialer
	RetryOpts []retry.Option
}

// RuntimeContext 每次命令执行构造一次，之后只读；选中的端点记录在 Session 里，不写回进程环境变量
type RuntimeContext struct {
	Config            config.DeployerConfig
	Profile           string // main / dev
	Network           string // mainnet-beta / devnet
	ProgramID         string // PROGRAM_ID，可能为空
	KeypairCandidates []string
	Ledger            *state.Ledger
	Metrics           *metrics.Metrics
	RetryOpts         []retry.Option

	connector *connection.Manager
	redis     *redis.Client
	publisher *mq.Publisher
}

// NewRuntimeContext 只做本地准备（读 .env、解析 profile、构造 ledger），不发起任何网络请求
func NewRuntimeContext(c config.DeployerConfig, opts Options) (*RuntimeContext, error) {
	ledgerLocker, rdb := newLedgerLocker(c.LedgerLock)
	ledger := state.NewLedger(c.Paths.TokenInfo, c.Paths.History, c.Paths.Env, ledgerLocker)

	dotenv, err := ledger.ReadEnv()
	if err != nil {
		logger.Warnf("[RuntimeContext] 读取 %s 失败，忽略: %v", c.Paths.Env, err)
		dotenv = map[string]string{}
	}
	lookup := func(key string) string {
		// 进程环境变量优先于 .env
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}

	profile, err := connection.ResolveProfile(lookup(EnvNetwork))
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, 4)
	if p := lookup(EnvKeypairPath); p != "" {
		candidates = append(candidates, p)
	}
	if len(c.Paths.Keypairs) > 0 {
		candidates = append(candidates, c.Paths.Keypairs...)
	} else {
		candidates = append(candidates, DefaultKeypairCandidates...)
	}

	pool := connection.NewPool(c.Network.MainEndpoints, c.Network.DevEndpoints)
	rc := &RuntimeContext{
		Config:            c,
		Profile:           profile,
		Network:           connection.NetworkName(profile),
		ProgramID:         lookup(EnvProgramID),
		KeypairCandidates: candidates,
		Ledger:            ledger,
		Metrics:           metrics.Default,
		RetryOpts:         opts.RetryOpts,
		connector:         connection.NewManager(pool, opts.Dialer, c.ProbePolicy(), opts.RetryOpts...),
		redis:             rdb,
	}
	logger.Infof("[RuntimeContext] network=%s, state=%s", rc.Network, c.Paths.TokenInfo)
	return rc, nil
}

func newLedgerLocker(c config.LedgerLockConfig) (state.Locker, *redis.Client) {
	if c.RedisAddr == "" {
		return state.NopLocker{}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	locker := state.NewRedisLocker(rdb,
		time.Duration(c.TTLMs)*time.Millisecond,
		time.Duration(c.WaitMs)*time.Millisecond)
	return locker, rdb
}

// PingLedgerLock 配置了 Redis 锁时检查连通性
func (rc *RuntimeContext) PingLedgerLock(ctx context.Context) error {
	if rc.redis == nil {
		return nil
	}
	if err := rc.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", rc.Config.LedgerLock.RedisAddr, err)
	}
	return nil
}

// Publisher 按需初始化 Kafka 发布者；未配置 brokers 时返回 nil
func (rc *RuntimeContext) Publisher() (*mq.Publisher, error) {
	kc := rc.Config.KafkaProducerConf
	if !kc.Enabled() {
		return nil, nil
	}
	if rc.publisher != nil {
		return rc.publisher, nil
	}
	producer, err := mq.NewKafkaProducer(kc)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}
	rc.publisher = mq.NewPublisher(producer, kc.Topic, kc.Partitions, time.Duration(kc.SendTimeoutMs)*time.Millisecond)
	return rc.publisher, nil
}

// Session 已连接的执行环境
type Session struct {
	Conn      *connection.Connection
	Client    chain.Client
	Submitter *submitter.Submitter
}

// Connect 选择可用端点并构造提交器
func (rc *RuntimeContext) Connect(ctx context.Context) (*Session, error) {
	conn, err := rc.connector.Connect(ctx, rc.Profile)
	if err != nil {
		return nil, err
	}
	sub := submitter.New(conn.Client, submitter.Config{
		Policy:         rc.Config.SubmitPolicy(),
		Commitment:     rc.Config.Network.Commitment,
		PollInterval:   time.Duration(rc.Config.Submit.ConfirmPollMs) * time.Millisecond,
		ConfirmTimeout: time.Duration(rc.Config.Submit.ConfirmTimeoutS) * time.Second,
	}, rc.RetryOpts...)
	return &Session{Conn: conn, Client: conn.Client, Submitter: sub}, nil
}

// Query 对只读 RPC 调用套用 query 重试策略
func Query[T any](ctx context.Context, rc *RuntimeContext, op func(ctx context.Context) (T, error)) (T, error) {
	return retry.DoWithData(ctx, rc.Config.QueryPolicy(), op, rc.RetryOpts...)
}

// Close 关闭服务上下文中的资源
func (rc *RuntimeContext) Close() {
	if rc.publisher != nil {
		rc.publisher.Close()
	}
	if rc.redis != nil {
		_ = rc.redis.Close()
	}
}
