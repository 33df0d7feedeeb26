package pipeline

import "context"

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
	// Ctx, when set, stops blocking sends once it is cancelled.
	Ctx context.Context
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	if s.Ctx == nil {
		s.Ch <- evt
		return
	}
	select {
	case s.Ch <- evt:
	case <-s.Ctx.Done():
	}
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) { f(evt) }
