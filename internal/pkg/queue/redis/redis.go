package redisQueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/observability/metrics"
	"aws-sqs-messenger/internal/pkg/queue"
)

const backend = "redis"

// pollInterval is how often an empty receive re-checks the ready list while long polling.
const pollInterval = 200 * time.Millisecond

// Messenger implements queue.Messenger on Redis. Each channel is a ready list of
// message ids, a hash of payloads and an in-flight sorted set of delivery
// handles scored by their visibility deadline.
type Messenger struct {
	Client *redis.Client // Redis client
	Config *Config       // Configuration for Redis queue

	resolver   *queue.Resolver
	translator queue.Translator
}

type Config struct {
	KeyPrefix         string        // Prefix for every key written by the messenger
	WaitTime          time.Duration // Long-poll wait for receive and peek
	VisibilityTimeout time.Duration // Receive visibility when the caller passes none
}

var _ queue.Messenger = (*Messenger)(nil)

// payload is the JSON document stored per message. ID is the caller-assigned
// id, if any; the storage id is always generated.
type payload struct {
	ID         string            `json:"id,omitempty"`
	Body       []byte            `json:"body"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NewClient creates a new redis client
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		DB:         db,
		MaxRetries: 10,
	})
}

// New creates a Messenger. The wait time is always capped at queue.MaxWaitTime.
func New(client *redis.Client, cfg Config) *Messenger {
	cfg.WaitTime = queue.ClampWait(cfg.WaitTime)
	cfg.VisibilityTimeout = queue.VisibilityOrDefault(cfg.VisibilityTimeout)
	return &Messenger{
		Client:     client,
		Config:     &cfg,
		resolver:   queue.NewResolver(cfg.KeyPrefix+"q", ":"),
		translator: queue.Translator{Classify: classify},
	}
}

func classify(err error) (string, bool) {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return "", false
	}
	code, _, _ := strings.Cut(rerr.Error(), " ")
	return code, code == errNonExistentQueue
}

func (m *Messenger) channelsKey() string {
	return m.Config.KeyPrefix + "channels"
}

// keys returns the script keys of a channel: channels set, ready list, message
// hash, in-flight zset, handle hash and handle sequence.
func (m *Messenger) keys(channel string) []string {
	base := m.resolver.Resolve(channel)
	return []string{m.channelsKey(), base + ":ready", base + ":msgs", base + ":inflight", base + ":handles", base + ":seq"}
}

// CreateChannels registers all channels concurrently.
func (m *Messenger) CreateChannels(ctx context.Context, names []string) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpCreateChannels, time.Now(), &err)
	if err := queue.ValidateNames(queue.OpCreateChannels, names); err != nil {
		return err
	}

	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			if errs[i] = queue.CheckContext(ctx, queue.OpCreateChannels, name); errs[i] != nil {
				return errs[i]
			}
			if err := m.Client.SAdd(ctx, m.channelsKey(), name).Err(); err != nil {
				errs[i] = m.translator.Translate(queue.OpCreateChannels, name, err)
				return errs[i]
			}
			logger.InfoCtx(ctx, "channel created", zap.String("channel", name))
			return nil
		})
	}
	if g.Wait() == nil {
		return nil
	}
	return multierr.Combine(errs...)
}

// ListChannels returns registered channel names in lexical order.
func (m *Messenger) ListChannels(ctx context.Context) (names []string, err error) {
	defer metrics.ObserveRequest(backend, queue.OpListChannels, time.Now(), &err)
	if err := queue.CheckContext(ctx, queue.OpListChannels, ""); err != nil {
		return nil, err
	}
	names, err = m.Client.SMembers(ctx, m.channelsKey()).Result()
	if err != nil {
		return nil, m.translator.Translate(queue.OpListChannels, "", err)
	}
	slices.Sort(names)
	return names, nil
}

// DeleteChannels unregisters channels and drops their keys, one channel at a time.
func (m *Messenger) DeleteChannels(ctx context.Context, names []string) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpDeleteChannels, time.Now(), &err)
	if err := queue.ValidateNames(queue.OpDeleteChannels, names); err != nil {
		return err
	}

	var errs error
	for _, name := range names {
		if err := queue.CheckContext(ctx, queue.OpDeleteChannels, name); err != nil {
			return multierr.Append(errs, err)
		}
		keys := m.keys(name)
		_, err := m.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, keys[0], name)
			pipe.Del(ctx, keys[1:]...)
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, m.translator.Translate(queue.OpDeleteChannels, name, err))
			continue
		}
		logger.InfoCtx(ctx, "channel deleted", zap.String("channel", name))
	}
	return errs
}

// GetMessageCount returns the number of visible messages, or zero for an unknown channel.
func (m *Messenger) GetMessageCount(ctx context.Context, channel string) (count int64, err error) {
	defer metrics.ObserveRequest(backend, queue.OpCount, time.Now(), &err)
	if err := queue.ValidateChannel(queue.OpCount, channel); err != nil {
		return 0, err
	}
	if err := queue.CheckContext(ctx, queue.OpCount, channel); err != nil {
		return 0, err
	}

	count, err = countScript.Run(ctx, m.Client, m.keys(channel), channel, time.Now().UnixMilli()).Int64()
	if err != nil {
		if m.translator.ChannelMissing(err) {
			return 0, nil
		}
		return 0, m.translator.Translate(queue.OpCount, channel, err)
	}
	return count, nil
}

// Send stores messages under fresh storage ids, one script call per group of
// queue.MaxBatchSize. Elements without a caller-assigned ID get the storage id.
func (m *Messenger) Send(ctx context.Context, channel string, messages []queue.Message) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpSend, time.Now(), &err)
	if err := queue.ValidateMessages(queue.OpSend, channel, messages); err != nil {
		return err
	}

	keys := m.keys(channel)
	for off, batch := range queue.Batches(messages, queue.MaxBatchSize) {
		if err := queue.CheckContext(ctx, queue.OpSend, channel); err != nil {
			return err
		}

		ids := make([]string, len(batch))
		args := make([]any, 0, 1+2*len(batch))
		args = append(args, channel)
		sent := strconv.FormatInt(time.Now().UnixMilli(), 10)
		for i, msg := range batch {
			data, err := encode(msg, sent)
			if err != nil {
				return queue.InvalidArgument(queue.OpSend, channel, "encode message %d: %v", off+i, err)
			}
			ids[i] = uuid.NewString()
			args = append(args, ids[i], data)
		}
		if err := sendScript.Run(ctx, m.Client, keys, args...).Err(); err != nil {
			logger.ErrorCtx(ctx, "redis send error", zap.String("channel", channel), zap.Int("offset", off), zap.Error(err))
			return m.translator.Translate(queue.OpSend, channel, err)
		}
		metrics.ObserveBatch(backend, queue.OpSend, len(batch))
		for i, id := range ids {
			if messages[off+i].ID == "" {
				messages[off+i].ID = id
			}
		}
	}
	return nil
}

func encode(msg queue.Message, sent string) (string, error) {
	props := make(map[string]string, len(msg.Properties)+1)
	for k, v := range msg.Properties {
		if k != queue.DeliveryHandleKey && k != queue.MessageIDKey {
			props[k] = v
		}
	}
	props["SentTimestamp"] = sent
	data, err := json.Marshal(payload{ID: msg.ID, Body: msg.Body, Properties: props})
	return string(data), err
}

// Receive pulls messages and hides them for visibility, or for the configured
// default when visibility is zero.
func (m *Messenger) Receive(ctx context.Context, channel string, count int, visibility time.Duration) ([]queue.Message, error) {
	if visibility <= 0 {
		visibility = m.Config.VisibilityTimeout
	}
	return m.pull(ctx, queue.OpReceive, channel, count, visibility)
}

// Peek pulls messages that become visible again after one second.
func (m *Messenger) Peek(ctx context.Context, channel string, count int) ([]queue.Message, error) {
	return m.pull(ctx, queue.OpPeek, channel, count, queue.PeekVisibilityTimeout)
}

func (m *Messenger) pull(ctx context.Context, op, channel string, count int, visibility time.Duration) (messages []queue.Message, err error) {
	defer metrics.ObserveRequest(backend, op, time.Now(), &err)
	if err := queue.ValidateChannel(op, channel); err != nil {
		return nil, err
	}

	keys := m.keys(channel)
	n := queue.ClampCount(count)
	deadline := time.Now().Add(m.Config.WaitTime)
	for {
		if err := queue.CheckContext(ctx, op, channel); err != nil {
			return nil, err
		}
		now := time.Now()
		res, err := receiveScript.Run(ctx, m.Client, keys, channel, now.UnixMilli(), now.Add(visibility).UnixMilli(), n).StringSlice()
		if err != nil {
			return nil, m.translator.Translate(op, channel, err)
		}
		if len(res) > 0 || !now.Before(deadline) {
			messages, err = decode(res)
			if err != nil {
				return nil, &queue.Error{Kind: queue.KindTransport, Op: op, Channel: channel, Err: err}
			}
			metrics.ObserveBatch(backend, op, len(messages))
			return messages, nil
		}

		select {
		case <-ctx.Done():
			return nil, queue.CheckContext(ctx, op, channel)
		case <-time.After(min(pollInterval, time.Until(deadline))):
		}
	}
}

// decode turns the id, handle, payload triples returned by receiveScript into messages.
func decode(res []string) ([]queue.Message, error) {
	if len(res)%3 != 0 {
		return nil, fmt.Errorf("malformed receive reply of %d elements", len(res))
	}
	messages := make([]queue.Message, 0, len(res)/3)
	for i := 0; i < len(res); i += 3 {
		var p payload
		if err := json.Unmarshal([]byte(res[i+2]), &p); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", res[i], err)
		}
		props := make(map[string]string, len(p.Properties)+1)
		for k, v := range p.Properties {
			props[k] = v
		}
		props[queue.DeliveryHandleKey] = res[i+1]
		id := res[i]
		if p.ID != "" {
			id = p.ID
		}
		messages = append(messages, queue.Message{ID: id, Body: p.Body, Properties: props})
	}
	return messages, nil
}

// Delete removes received messages by delivery handle, one script call per
// group of queue.MaxBatchSize. Stale handles are ignored.
func (m *Messenger) Delete(ctx context.Context, channel string, messages []queue.Message) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpDelete, time.Now(), &err)
	if err := queue.ValidateMessages(queue.OpDelete, channel, messages); err != nil {
		return err
	}
	if err := queue.RequireDeliveryHandles(queue.OpDelete, channel, messages); err != nil {
		return err
	}

	keys := m.keys(channel)
	deleted := 0
	for off, batch := range queue.Batches(messages, queue.MaxBatchSize) {
		if err := queue.CheckContext(ctx, queue.OpDelete, channel); err != nil {
			return err
		}
		handles := make([]any, len(batch))
		for i, msg := range batch {
			handles[i], _ = msg.DeliveryHandle()
		}
		res, err := deleteScript.Run(ctx, m.Client, keys[2:5], handles...).Int64Slice()
		if err != nil {
			logger.ErrorCtx(ctx, "redis delete error", zap.String("channel", channel), zap.Int("offset", off), zap.Error(err))
			return m.translator.Translate(queue.OpDelete, channel, err)
		}
		for _, r := range res {
			deleted += int(r)
		}
		metrics.ObserveBatch(backend, queue.OpDelete, len(batch))
	}
	logger.DebugCtx(ctx, "messages deleted", zap.String("channel", channel), zap.Int("count", deleted), zap.Int("stale", len(messages)-deleted))
	return nil
}
