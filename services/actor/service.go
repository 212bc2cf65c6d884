package actor

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/benbjohnson/clock"

	"actorcode-go/bus"
	"actorcode-go/errcode"
	"actorcode-go/logging"
	"actorcode-go/types"
	"actorcode-go/x/timex"
)

const topicAct = "act"

// InfoTopic is where an actor's retained description lives.
func InfoTopic(name string) bus.Topic { return bus.Topic{topicAct, name, "info"} }

// ControlTopic addresses one action of an actor.
func ControlTopic(name, action string) bus.Topic {
	return bus.Topic{topicAct, name, "control", action}
}

// EventTopic carries a DispatchEvent after each action an actor ran.
func EventTopic(name string) bus.Topic { return bus.Topic{topicAct, name, "event", "triggered"} }

// Service binds a registry to the bus:
//
//	act/<actor>/control/<action>  request; payload is the action payload, reply is the JSON body
//	act/<actor>/event/triggered   DispatchEvent after every dispatch
//	act/<actor>/info              retained types.Description
//	act/list                      request; reply is ListAllActions
type Service struct {
	reg   *Registry
	conn  *bus.Connection
	log   logging.Logger
	clock clock.Clock

	mu        sync.Mutex
	published map[string]struct{} // names with a retained info message
}

func NewService(reg *Registry, conn *bus.Connection, log logging.Logger, clk clock.Clock) *Service {
	if log == nil {
		log = logging.Discard()
	}
	if clk == nil {
		clk = clock.New()
	}
	s := &Service{reg: reg, conn: conn, log: log.Named("actors"), clock: clk, published: map[string]struct{}{}}
	reg.OnDispatch(s.publishEvent)
	return s
}

// Start subscribes to control requests and publishes actor info before it returns, so a
// request sent afterwards is queued even if the loop has not been scheduled yet. The
// returned loop serves requests until ctx is cancelled.
func (s *Service) Start() func(ctx context.Context) error {
	ctrlSub := s.conn.Subscribe(bus.Topic{topicAct, "+", "control", "+"})
	listSub := s.conn.Subscribe(bus.Topic{topicAct, "list"})

	s.PublishInfo()

	return func(ctx context.Context) error {
		defer s.conn.Unsubscribe(ctrlSub)
		defer s.conn.Unsubscribe(listSub)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-ctrlSub.Channel():
				s.handleControl(msg)
			case msg := <-listSub.Channel():
				s.conn.Reply(msg, s.reg.ListAllActions(), false)
			}
		}
	}
}

// Run serves control requests until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error { return s.Start()(ctx) }

func (s *Service) handleControl(msg *bus.Message) {
	// act/<actor>/control/<action>
	actorName, _ := msg.Topic.At(1).(string)
	actionName, _ := msg.Topic.At(3).(string)
	if actorName == "" || actionName == "" {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	payload, err := payloadString(msg.Payload)
	if err != nil {
		s.replyErr(msg, errcode.InvalidPayload)
		return
	}
	body, err := s.reg.Dispatch(actorName, actionName, payload)
	switch c := errcode.Of(err); c {
	case errcode.OK, errcode.ActionFailed:
		s.conn.Reply(msg, body, false)
	default:
		s.log.Warnf("control %s:%s: %v", actorName, actionName, err)
		s.replyErr(msg, c)
	}
}

// PublishInfo publishes a retained description for every registered actor and clears the
// info of names that no longer resolve, e.g. after a rename.
func (s *Service) PublishInfo() {
	live := map[string]struct{}{}
	for _, a := range s.reg.Actors() {
		d := a.Description()
		live[d.Name] = struct{}{}
		s.conn.Publish(s.conn.NewMessage(InfoTopic(d.Name), d, true))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.published {
		if _, ok := live[name]; !ok {
			s.conn.Publish(s.conn.NewMessage(InfoTopic(name), nil, true))
		}
	}
	s.published = live
}

func (s *Service) publishEvent(actorName, actionName, payload string, ok bool, _ string) {
	ev := types.DispatchEvent{
		Actor:   actorName,
		Action:  actionName,
		Payload: payload,
		OK:      ok,
		TSms:    timex.NowMs(s.clock),
	}
	s.conn.Publish(s.conn.NewMessage(EventTopic(actorName), ev, false))
}

func (s *Service) replyErr(req *bus.Message, c errcode.Code) {
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(c)}, false)
}

// payloadString turns a bus payload into an action payload. Strings and bytes pass through,
// anything else is sent as JSON.
func payloadString(p any) (string, error) {
	switch v := p.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
