package mq

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"token-deployer-sol/internal/config"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/utils"
)

var (
	testMint     = types.PubkeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testAdmin    = types.PubkeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	testReceiver = types.PubkeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
)

func testEvent() DistributionEvent {
	return DistributionEvent{
		Network:   "devnet",
		Mint:      testMint,
		From:      testAdmin,
		To:        testReceiver,
		Amount:    "1.5",
		BaseUnits: 1500000000,
		Decimals:  9,
		Signature: "5sig",
		Timestamp: "2026-01-02T03:04:05.000Z",
	}
}

func TestBuildDistributionJob(t *testing.T) {
	job, err := BuildDistributionJob("dist", 4, testEvent())
	require.NoError(t, err)

	assert.Equal(t, "dist", job.Topic)
	assert.Equal(t, int32(utils.PartitionHashBytes(testReceiver[:], 4)), job.Partition)
	assert.Equal(t, []byte(testReceiver.String()), job.Key)

	var msg structpb.Struct
	eventType, err := utils.DecodeEvent(job.Value, &msg)
	require.NoError(t, err)
	assert.Equal(t, EventTypeDistribution, eventType)
	assert.Equal(t, "1500000000", msg.Fields["baseUnits"].GetStringValue())
	assert.Equal(t, testReceiver.String(), msg.Fields["to"].GetStringValue())
	assert.Equal(t, float64(9), msg.Fields["decimals"].GetNumberValue())

	// 同一接收方总是同一分区
	again, err := BuildDistributionJob("dist", 4, testEvent())
	require.NoError(t, err)
	assert.Equal(t, job.Partition, again.Partition)
}

// 以下测试需要本地 Kafka：KAFKA_BROKERS=127.0.0.1:9092 go test ./internal/mq/
func testBrokers(t *testing.T) string {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	return brokers
}

func TestPublisher_RealKafka(t *testing.T) {
	brokers := testBrokers(t)
	topic := fmt.Sprintf("test-distribution-%d", time.Now().UnixNano())

	producer, err := NewKafkaProducer(config.KafkaProducerConfig{Brokers: brokers, Topic: topic, Partitions: 2})
	require.NoError(t, err)
	pub := NewPublisher(producer, topic, 2, 5*time.Second)
	defer pub.Close()

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"group.id":          "test-group-" + time.Now().Format("20060102150405"),
		"auto.offset.reset": "earliest",
	})
	require.NoError(t, err)
	defer consumer.Close()
	require.NoError(t, consumer.Subscribe(topic, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, pub.PublishDistribution(ctx, testEvent()))

	msg, err := consumer.ReadMessage(10 * time.Second)
	require.NoError(t, err)

	var body structpb.Struct
	eventType, err := utils.DecodeEvent(msg.Value, &body)
	require.NoError(t, err)
	assert.Equal(t, EventTypeDistribution, eventType)
	assert.Equal(t, "5sig", body.Fields["signature"].GetStringValue())
}

func TestSendKafkaJobs_RealKafka_Timeout(t *testing.T) {
	brokers := testBrokers(t)
	producer, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": brokers})
	require.NoError(t, err)
	defer func() {
		producer.Flush(1000)
		producer.Close()
	}()

	jobs := []*KafkaJob{{Topic: "test-topic", Value: []byte("test message")}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ok, failed := SendKafkaJobs(ctx, producer, jobs, 5*time.Millisecond)

	assert.Equal(t, 0, len(ok), "由于超时，不应该有成功的消息")
	assert.Equal(t, 1, len(failed), "应该有 1 条失败的消息")
}

func TestSendKafkaJobs_Empty(t *testing.T) {
	ok, failed := SendKafkaJobs(context.Background(), nil, nil, time.Second)
	assert.Empty(t, ok)
	assert.Empty(t, failed)
}
