package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
)

// Connection wraps a RabbitMQ connection
type Connection struct {
	conn *amqp.Connection
}

func Dial(url string) (*Connection, error) {
	logger := common.GetLoggerWith(common.LoggerNameMQPublisher)
	logger.Info("Connecting to RabbitMQ")

	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error("RabbitMQ connection failed", zap.Error(err))
		return nil, fmt.Errorf("cannot connect to RabbitMQ: %w", err)
	}
	return &Connection{conn: conn}, nil
}

func (c *Connection) Channel() (*amqp.Channel, error) {
	return c.conn.Channel()
}

func (c *Connection) Close() error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
