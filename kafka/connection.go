// Package kafka publishes sync lifecycle events to a Kafka cluster,
// optionally authenticating over SASL (see awsmsk for MSK IAM).
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/harborview/crmsync/e"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
)

const (
	// Error constants
	ECodeKF0101 = e.CodeKF01 + "01"
	ECodeKF0102 = e.CodeKF01 + "02"
	ECodeKF0103 = e.CodeKF01 + "03"
	ECodeKF0104 = e.CodeKF01 + "04"
	ECodeKF0105 = e.CodeKF01 + "05"
	ECodeKF0106 = e.CodeKF01 + "06"
	ECodeKF0107 = e.CodeKF01 + "07"
	ECodeKF0108 = e.CodeKF01 + "08"
)

// ConnectionConfig for NewConn
type ConnectionConfig struct {
	AddressList   []string
	Context       context.Context
	NoTLS         bool
	SASLMechanism sasl.Mechanism
	Timeout       *time.Duration
	TLS           *tls.Config
}

// Connection a kafka connection with pre-initialized address list, dialer,
// transport and SASL mechanism
type Connection struct {
	Context context.Context

	addressList   []string
	conn          *kafka.Conn
	dialer        *kafka.Dialer
	saslMechanism sasl.Mechanism
	transport     *kafka.Transport
}

// NewConn create a new Kafka connection
func NewConn(conf ConnectionConfig) (c *Connection, err error) {
	if len(conf.AddressList) == 0 {
		return nil, e.N(ECodeKF0101, "no address")
	}

	c = &Connection{
		addressList: conf.AddressList,
	}

	if conf.Context != nil {
		c.Context = conf.Context
	} else {
		c.Context = context.TODO()
	}

	if conf.SASLMechanism != nil {
		c.saslMechanism = conf.SASLMechanism

		dialer := &kafka.Dialer{
			DualStack: true,
			Timeout:   10 * time.Second,
		}
		transport := &kafka.Transport{}

		if conf.Timeout != nil {
			dialer.Timeout = *conf.Timeout
		}
		if conf.TLS != nil {
			dialer.TLS = conf.TLS
			transport.TLS = conf.TLS
		} else if !conf.NoTLS {
			dialer.TLS = &tls.Config{}
			transport.TLS = &tls.Config{}
		}

		dialer.SASLMechanism = c.saslMechanism
		transport.SASL = c.saslMechanism

		c.dialer = dialer
		c.transport = transport
	} else {
		c.dialer = kafka.DefaultDialer
		c.transport = &kafka.Transport{}
	}

	if err := c.connect(); err != nil {
		return c, e.W(err, ECodeKF0102)
	}
	return c, nil
}

// connect opens a connection to a random address in the list
func (c *Connection) connect() (err error) {
	if c.conn != nil {
		return e.N(ECodeKF0103, "already connected")
	}

	idx := rand.Intn(len(c.addressList))
	c.conn, err = c.dialer.DialContext(c.Context, "tcp", c.addressList[idx])
	if err != nil {
		return e.W(err, ECodeKF0104)
	}

	return nil
}

// Close closes the connection
func (c *Connection) Close() (err error) {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return e.W(err, ECodeKF0105)
		}

		c.conn = nil
	}

	return nil
}

// CreateTopics creates topics using the associated dialer
func (c *Connection) CreateTopics(tcList ...kafka.TopicConfig) (err error) {
	broker, err := c.conn.Controller()
	if err != nil {
		return e.W(err, ECodeKF0106)
	}

	cc, err := c.dialer.DialContext(context.TODO(), "tcp",
		net.JoinHostPort(broker.Host, strconv.Itoa(broker.Port)))
	if err != nil {
		return e.W(err, ECodeKF0107)
	}
	defer func() {
		if err := cc.Close(); err != nil {
			log.Warn().Err(err).Msgf("[%s]failed to close connection", ECodeKF0105)
		}
	}()

	if err := cc.CreateTopics(tcList...); err != nil {
		return e.W(err, ECodeKF0108)
	}

	return nil
}

// EnsureTopic creates the topic with a single partition when the cluster
// does not already have it
func (c *Connection) EnsureTopic(topic string) (err error) {
	err = c.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return err
	}

	return nil
}

// NewWriter helper to return a new kafka writer using this connection's
// address list and transport
func (c *Connection) NewWriter(topic string) (w *kafka.Writer) {
	return &kafka.Writer{
		Addr:      kafka.TCP(c.addressList...),
		Topic:     topic,
		Transport: c.transport,
	}
}
