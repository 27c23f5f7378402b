package transport

import "github.com/koscakluka/ema-avatar/core/events"

type ConnectOptions struct {
	// AutoSubscribe subscribes to every remote track as soon as it is
	// published.
	AutoSubscribe bool
	// EventCallback receives session events in transport order. It is called
	// from a single goroutine.
	EventCallback func(events.Event)
}

type ConnectOption func(*ConnectOptions)

func WithAutoSubscribe(autoSubscribe bool) ConnectOption {
	return func(o *ConnectOptions) { o.AutoSubscribe = autoSubscribe }
}

func WithEventCallback(callback func(events.Event)) ConnectOption {
	return func(o *ConnectOptions) { o.EventCallback = callback }
}

// NewConnectOptions applies opts over the defaults. Implementations use it so
// a nil callback never has to be checked.
func NewConnectOptions(opts ...ConnectOption) ConnectOptions {
	options := ConnectOptions{AutoSubscribe: true}
	for _, opt := range opts {
		opt(&options)
	}
	if options.EventCallback == nil {
		options.EventCallback = func(events.Event) {}
	}
	return options
}

type SendOptions struct {
	Topic string
}

type SendOption func(*SendOptions)

func WithTopic(topic string) SendOption {
	return func(o *SendOptions) { o.Topic = topic }
}

func NewSendOptions(opts ...SendOption) SendOptions {
	options := SendOptions{Topic: TopicChat}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type PublishOptions struct {
	Source Source
}

type PublishOption func(*PublishOptions)

func WithSource(source Source) PublishOption {
	return func(o *PublishOptions) { o.Source = source }
}

func NewPublishOptions(opts ...PublishOption) PublishOptions {
	options := PublishOptions{Source: SourceMicrophone}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
