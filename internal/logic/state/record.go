package state

import (
	"encoding/json"
	"time"
)

// KeyMetadata token-info.json 中元数据对象的键名
const KeyMetadata = "metadata"

// MetadataRecord token-info.json 中的 metadata 字段
type MetadataRecord struct {
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol          string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	URI             string `json:"uri,omitempty" yaml:"uri,omitempty"`
	MetadataAddress string `json:"metadataAddress,omitempty" yaml:"metadataAddress,omitempty"`
}

// DeploymentRecord token-info.json 的已知字段
type DeploymentRecord struct {
	TokenAddress      string          `json:"tokenAddress,omitempty" yaml:"tokenAddress,omitempty"`
	AdminTokenAccount string          `json:"adminTokenAccount,omitempty" yaml:"adminTokenAccount,omitempty"`
	Decimals          *uint8          `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	AdminPublicKey    string          `json:"adminPublicKey,omitempty" yaml:"adminPublicKey,omitempty"`
	Metadata          *MetadataRecord `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DecimalsOr 记录中没有精度时返回 def
func (r *DeploymentRecord) DecimalsOr(def uint8) uint8 {
	if r.Decimals == nil {
		return def
	}
	return *r.Decimals
}

// TransactionRecord transaction-history.json 的一条记录
type TransactionRecord struct {
	Timestamp   string      `json:"timestamp" yaml:"timestamp"`
	From        string      `json:"from" yaml:"from"`
	To          string      `json:"to" yaml:"to"`
	Amount      json.Number `json:"amount" yaml:"amount"`
	TxSignature string      `json:"txSignature" yaml:"txSignature"`
}

// NewTransactionRecord 时间戳取当前 UTC，ISO-8601 毫秒精度
func NewTransactionRecord(from, to, amount, signature string) TransactionRecord {
	return TransactionRecord{
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		From:        from,
		To:          to,
		Amount:      json.Number(amount),
		TxSignature: signature,
	}
}
