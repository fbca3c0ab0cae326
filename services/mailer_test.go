package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"student-records-manager/config"
)

func TestNewMailer_ClampsBatchSize(t *testing.T) {
	// A zero or negative batch size would stall the send loop.
	for _, size := range []int{0, -3} {
		m := NewMailer(&config.Config{ImportBatchSize: size})
		assert.Equal(t, 1, m.batchSize)
	}

	m := NewMailer(&config.Config{ImportBatchSize: 25})
	assert.Equal(t, 25, m.batchSize)
}

func TestMailer_NoMailsIsNoop(t *testing.T) {
	m := NewMailer(&config.Config{ImportBatchSize: 10})
	assert.Empty(t, m.SendCredentials(nil))
}
