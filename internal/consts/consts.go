package consts

const (
	// LamportsPerSOL 1 SOL = 10^9 lamports
	LamportsPerSOL uint64 = 1_000_000_000

	// MinRecommendedBalance 部署者余额低于 1 SOL 时告警（不阻断）
	MinRecommendedBalance = LamportsPerSOL

	// DefaultDecimals 新 mint 的默认精度
	DefaultDecimals uint8 = 9

	// DefaultInitialSupply 部署时给管理员铸造的初始数量（整币，非最小单位）
	DefaultInitialSupply = "1000000"

	// MetadataSeed 元数据 PDA 的第一个 seed
	MetadataSeed = "metadata"

	// MaxNameLen / MaxSymbolLen 元数据字段的业务上限（字节）
	MaxNameLen   = 32
	MaxSymbolLen = 10
)

// 网络 profile
const (
	ProfileMain = "main"
	ProfileDev  = "dev"
)
