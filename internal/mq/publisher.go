package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"google.golang.org/protobuf/types/known/structpb"

	"token-deployer-sol/internal/metrics"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/utils"
)

// EventTypeDistribution 分发事件的类型前缀
const EventTypeDistribution uint32 = 1

// DistributionEvent 一次成功分发后对外发布的事件
type DistributionEvent struct {
	Network   string
	Mint      types.Pubkey
	From      types.Pubkey
	To        types.Pubkey
	Amount    string // 用户输入的整币数量
	BaseUnits uint64 // 链上最小单位数量
	Decimals  uint8
	Signature string
	Timestamp string
}

// ToStruct 转成 protobuf Struct；BaseUnits 用字符串，避免 float64 精度丢失
func (e DistributionEvent) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"network":   e.Network,
		"mint":      e.Mint.String(),
		"from":      e.From.String(),
		"to":        e.To.String(),
		"amount":    e.Amount,
		"baseUnits": fmt.Sprintf("%d", e.BaseUnits),
		"decimals":  float64(e.Decimals),
		"signature": e.Signature,
		"timestamp": e.Timestamp,
	})
}

// BuildDistributionJob 编码事件，按接收方地址选分区
func BuildDistributionJob(topic string, partitions int, evt DistributionEvent) (*KafkaJob, error) {
	msg, err := evt.ToStruct()
	if err != nil {
		return nil, err
	}
	value, err := utils.EncodeEvent(EventTypeDistribution, msg)
	if err != nil {
		return nil, err
	}
	return &KafkaJob{
		Topic:     topic,
		Partition: int32(utils.PartitionHashBytes(evt.To[:], uint32(max(partitions, 1)))),
		Key:       []byte(evt.To.String()),
		Value:     value,
	}, nil
}

// Publisher 发布分发事件
type Publisher struct {
	producer   *kafka.Producer
	topic      string
	partitions int
	timeout    time.Duration
}

func NewPublisher(producer *kafka.Producer, topic string, partitions int, timeout time.Duration) *Publisher {
	return &Publisher{
		producer:   producer,
		topic:      topic,
		partitions: partitions,
		timeout:    timeout,
	}
}

func (p *Publisher) PublishDistribution(ctx context.Context, evt DistributionEvent) error {
	job, err := BuildDistributionJob(p.topic, p.partitions, evt)
	if err != nil {
		return err
	}

	_, failed := SendKafkaJobs(ctx, p.producer, []*KafkaJob{job}, p.timeout)
	if len(failed) > 0 {
		metrics.Default.EventsPublished.WithLabelValues(p.topic, "failure").Inc()
		errs := make([]error, 0, len(failed))
		for _, f := range failed {
			errs = append(errs, f.Err)
		}
		return fmt.Errorf("publish distribution event: %w", errors.Join(errs...))
	}
	metrics.Default.EventsPublished.WithLabelValues(p.topic, "success").Inc()
	logger.Infof("[mq] 分发事件已发布: topic=%s partition=%d sig=%s", p.topic, job.Partition, evt.Signature)
	return nil
}

// Close 刷出未发送的消息并关闭生产者
func (p *Publisher) Close() {
	if p.producer == nil {
		return
	}
	p.producer.Flush(int(p.timeout / time.Millisecond))
	p.producer.Close()
}
