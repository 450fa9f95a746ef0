package modules

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/eventbus"
)

// TopicRelay backs DISPATCHER, SERVICE, NETCHANNEL, BLOCKCHANNEL,
// CERTTXCHANNEL, USERTXCHANNEL, and DELEGATEDCHANNEL: each subscribes
// to its own named topic on the shared event bus instead of holding
// a direct reference to whichever module would otherwise have sent
// it a message, breaking the cyclic reference the original module
// map created between these modules.
type TopicRelay struct {
	name       string
	topics     []string
	bus        eventbus.Bus
	logger     zerolog.Logger
	subscribed []string
}

// NewTopicRelay constructs a relay module named name, subscribing to
// topics on Run.
func NewTopicRelay(name string, bus eventbus.Bus, logger zerolog.Logger, topics ...string) *TopicRelay {
	return &TopicRelay{
		name:   name,
		topics: topics,
		bus:    bus,
		logger: logger,
	}
}

func (m *TopicRelay) Name() string { return m.name }

func (m *TopicRelay) Initialize(ctx context.Context) error { return nil }

func (m *TopicRelay) Run(ctx context.Context) error {
	for _, topic := range m.topics {
		if err := m.bus.Subscribe(ctx, topic, m.handle); err != nil {
			return err
		}
		m.subscribed = append(m.subscribed, topic)
	}
	return nil
}

func (m *TopicRelay) handle(ctx context.Context, topic string, payload []byte) error {
	m.logger.Debug().Str("module", m.name).Str("topic", topic).Int("bytes", len(payload)).Msg("relay: message received")
	return nil
}

// Publish sends payload on topic via the shared bus; other modules
// reach this relay only through the bus, never by direct reference.
func (m *TopicRelay) Publish(ctx context.Context, topic string, payload []byte) error {
	return m.bus.Publish(ctx, topic, payload)
}

func (m *TopicRelay) Halt(ctx context.Context) error {
	var firstErr error
	for _, topic := range m.subscribed {
		if err := m.bus.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.subscribed = nil
	return firstErr
}

func (m *TopicRelay) Deinitialize(ctx context.Context) error { return nil }

// NewDispatcher, NewService, NewNetChannel, NewBlockChannel,
// NewCertTxChannel, NewUserTxChannel, and NewDelegatedChannel are
// named constructors over TopicRelay, one per module kind the mode
// registry lists; each owns exactly one topic matching its name.

func NewDispatcher(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("dispatcher", bus, logger, "dispatcher")
}

func NewService(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("service", bus, logger, "service")
}

func NewNetChannel(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("netchannel", bus, logger, "netchannel")
}

func NewBlockChannel(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("blockchannel", bus, logger, "blockchannel")
}

func NewCertTxChannel(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("certtxchannel", bus, logger, "certtxchannel")
}

func NewUserTxChannel(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("usertxchannel", bus, logger, "usertxchannel")
}

func NewDelegatedChannel(bus eventbus.Bus, logger zerolog.Logger) *TopicRelay {
	return NewTopicRelay("delegatedchannel", bus, logger, "delegatedchannel")
}
