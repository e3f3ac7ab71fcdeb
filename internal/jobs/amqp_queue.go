package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"medtrain_backend/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const workRoutingKey = "work"

// AMQPQueue 延迟任务先进入带 TTL 的延迟队列，过期后经死信交换机转入工作队列
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	mu         sync.Mutex
	exchange   string
	workQueue  string
	delayQueue string
	now        func() time.Time
}

func NewAMQPQueue(url, exchange string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	q := &AMQPQueue{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		workQueue:  exchange + ".work",
		delayQueue: exchange + ".delay",
		now:        time.Now,
	}
	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func (q *AMQPQueue) declare() error {
	if err := q.ch.ExchangeDeclare(q.exchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := q.ch.QueueDeclare(q.workQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := q.ch.QueueBind(q.workQueue, workRoutingKey, q.exchange, false, nil); err != nil {
		return err
	}
	_, err := q.ch.QueueDeclare(q.delayQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    q.exchange,
		"x-dead-letter-routing-key": workRoutingKey,
	})
	return err
}

func (q *AMQPQueue) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	job, err := NewJob(name, payload, delay, q.now())
	if err != nil {
		return err
	}
	return q.publish(job, delay)
}

func (q *AMQPQueue) publish(job Job, delay time.Duration) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         job.Name,
		Timestamp:    job.EnqueuedAt,
		Body:         body,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if delay <= 0 {
		return q.ch.Publish(q.exchange, workRoutingKey, false, false, msg)
	}
	msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	return q.ch.Publish("", q.delayQueue, false, false, msg)
}

func (q *AMQPQueue) Run(ctx context.Context, registry *Registry) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.workQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.Log.Info("AMQP job worker started", zap.String("queue", q.workQueue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp delivery channel closed")
			}
			q.handle(ctx, registry, d)
		}
	}
}

func (q *AMQPQueue) handle(ctx context.Context, registry *Registry, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Log.Error("Drop malformed job", zap.Error(err))
		_ = d.Reject(false)
		return
	}

	if err := registry.Dispatch(ctx, job); err != nil {
		if retry, ok := job.nextAttempt(q.now()); ok {
			if pubErr := q.publish(retry, retryDelay); pubErr != nil {
				logger.Log.Error("Requeue job failed", zap.String("job", job.Name), zap.Error(pubErr))
			}
		} else {
			logger.Log.Error("Job failed permanently", zap.String("job", job.Name), zap.String("id", job.ID), zap.Error(err))
		}
	}
	_ = d.Ack(false)
}

func (q *AMQPQueue) Close() {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
}
