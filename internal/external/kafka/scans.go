package laundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	model "github.com/glkeru/laundry/internal/models"
	"github.com/segmentio/kafka-go"
)

// сообщение не разобрано, смещение уже зафиксировано
var ErrBadMessage = errors.New("bad scan message")

// Чтение сканирований меток из Kafka
type ScanReader struct {
	reader *kafka.Reader
}

func NewScanReader(broker string, topic string) (*ScanReader, error) {
	if broker == "" {
		return nil, fmt.Errorf("kafka broker is not set")
	}
	if topic == "" {
		topic = "scans"
	}
	kafkaconfig := kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: "laundry_scans",
	}
	return &ScanReader{kafka.NewReader(kafkaconfig)}, nil
}

func (k *ScanReader) GetNewScan(ctx context.Context) (model.TagScan, error) {
	msg, err := k.reader.ReadMessage(ctx)
	if err != nil {
		return model.TagScan{}, err
	}
	return DecodeScan(msg.Value)
}

func DecodeScan(value []byte) (model.TagScan, error) {
	var scan model.TagScan
	if err := json.Unmarshal(value, &scan); err != nil {
		return model.TagScan{}, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	if scan.TagID == "" {
		return model.TagScan{}, fmt.Errorf("%w: tagId %w", ErrBadMessage, model.ErrValidation)
	}
	return scan, nil
}

func (k *ScanReader) CloseReader() {
	k.reader.Close()
}
