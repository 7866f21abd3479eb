package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNoChannel — канал недоступен (соединение закрыто или переподключается).
var ErrNoChannel = errors.New("no amqp channel available")

// errConnectionClosed — Close уже вызван, новое соединение не нужно.
var errConnectionClosed = errors.New("amqp connection closed")

const (
	// initialRetryDelay — первая задержка перед повторной попыткой.
	initialRetryDelay = time.Second

	// maxReconnectDelay — верхняя граница экспоненциальной задержки.
	maxReconnectDelay = 30 * time.Second
)

// Connection — обёртка над AMQP соединением с переподключением.
//
// Сборка marian идёт долго, и брокер может перезапуститься посреди run
// или закрыть канал после ошибки publish. Упавший канал открывается заново
// на том же соединении, упавшее соединение восстанавливается целиком.
// События, опубликованные во время разрыва, теряются (publish вернёт ошибку,
// run продолжится).
type Connection struct {
	url        string
	logger     *slog.Logger
	retryDelay time.Duration

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	closed   bool
	closedCh chan struct{}
}

// NewConnection подключается к RabbitMQ.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	c := &Connection{
		url:        url,
		logger:     logger,
		retryDelay: initialRetryDelay,
		closedCh:   make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watch()

	return c, nil
}

// connect устанавливает соединение и открывает канал.
func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if !c.install(conn, ch) {
		return errConnectionClosed
	}

	c.logger.Debug("connected to RabbitMQ")
	return nil
}

// install делает conn и ch текущими. nil conn оставляет текущее соединение.
// Если Close уже вызван, закрывает переданное и возвращает false.
func (c *Connection) install(conn *amqp.Connection, ch *amqp.Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if ch != nil {
			_ = ch.Close()
		}
		if conn != nil {
			_ = conn.Close()
		}
		return false
	}

	if conn != nil {
		c.conn = conn
	}
	c.channel = ch
	return true
}

// watch ждёт закрытия канала или соединения и восстанавливает их.
func (c *Connection) watch() {
	for {
		c.mu.RLock()
		conn, ch := c.conn, c.channel
		c.mu.RUnlock()

		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return

		case err := <-connClosed:
			if err != nil {
				c.logger.Warn("RabbitMQ connection lost", "error", err)
			}
			c.dropChannel()

		case err := <-chClosed:
			if err != nil {
				c.logger.Warn("RabbitMQ channel closed", "error", err)
			}
			c.dropChannel()
			if c.reopenChannel(conn.Channel) {
				c.logger.Info("reopened RabbitMQ channel")
				continue
			}
		}

		if !c.reconnect() {
			return
		}
	}
}

func (c *Connection) dropChannel() {
	c.mu.Lock()
	c.channel = nil
	c.mu.Unlock()
}

// reopenChannel открывает новый канал на текущем соединении.
// Возвращает false, если соединение тоже закрыто (нужен reconnect)
// или вызван Close.
func (c *Connection) reopenChannel(open func() (*amqp.Channel, error)) bool {
	delay := c.retryDelay

	for {
		select {
		case <-c.closedCh:
			return false
		case <-time.After(delay):
		}

		ch, err := open()
		if err == nil {
			return c.install(nil, ch)
		}
		if errors.Is(err, amqp.ErrClosed) {
			return false
		}

		c.logger.Warn("RabbitMQ channel reopen failed", "error", err, "next_delay", delay*2)
		delay = min(delay*2, maxReconnectDelay)
	}
}

// reconnect пытается переподключиться с экспоненциальной задержкой.
// Возвращает false, если соединение закрыто через Close.
func (c *Connection) reconnect() bool {
	delay := c.retryDelay

	for {
		select {
		case <-c.closedCh:
			return false
		case <-time.After(delay):
		}

		err := c.connect()
		if errors.Is(err, errConnectionClosed) {
			return false
		}
		if err != nil {
			c.logger.Warn("RabbitMQ reconnect failed", "error", err, "next_delay", delay*2)
			delay = min(delay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")
		return true
	}
}

// WithChannel выполняет функцию с текущим каналом.
func (c *Connection) WithChannel(_ context.Context, fn func(ch *amqp.Channel) error) error {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil {
		return ErrNoChannel
	}

	return fn(ch)
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close закрывает соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closedCh)

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
