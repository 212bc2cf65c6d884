// Package config applies actor configuration written on the bus and keeps the retained copy
// of each actor's current configuration up to date.
package config

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/multierr"

	"actorcode-go/bus"
	"actorcode-go/errcode"
	"actorcode-go/logging"
	"actorcode-go/services/actor"
	"actorcode-go/services/storage"
	"actorcode-go/types"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	topicAct     = "act"
)

// Configurable is an actor with a JSON settings file.
type Configurable interface {
	actor.Actor
	GetConfig() (string, error)
	SetConfig(configJSON string, save bool) error
	ConfigPath() string
}

// WriteTopic is where new configuration for an actor is published.
func WriteTopic(name string) bus.Topic { return bus.Topic{configPrefix, topicAct, name} }

// CurrentTopic holds the retained current configuration of an actor.
func CurrentTopic(name string) bus.Topic { return bus.Topic{topicAct, name, "config"} }

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string

	conn  *bus.Connection
	reg   *actor.Registry
	store *storage.Storage
	log   logging.Logger

	// OnApplied runs after every successful apply, e.g. to refresh actor info.
	OnApplied func()

	mu   sync.Mutex
	last map[string]string // settings file content as of the last apply, by path
}

func NewConfigService(conn *bus.Connection, reg *actor.Registry, store *storage.Storage, log logging.Logger) *ConfigService {
	if log == nil {
		log = logging.Discard()
	}
	return &ConfigService{
		Name:  serviceName,
		conn:  conn,
		reg:   reg,
		store: store,
		log:   log.Named(serviceName),
		last:  map[string]string{},
	}
}

// Start subscribes to config writes and publishes the current configs before it returns.
// The returned loop applies writes until ctx is cancelled.
func (s *ConfigService) Start() func(ctx context.Context) error {
	sub := s.conn.Subscribe(bus.Topic{configPrefix, topicAct, "+"})

	if err := s.PublishAll(); err != nil {
		s.log.Warnf("publish configs: %v", err)
	}

	return func(ctx context.Context) error {
		defer s.conn.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-sub.Channel():
				s.handle(msg)
			}
		}
	}
}

// Run applies config writes until ctx is cancelled.
func (s *ConfigService) Run(ctx context.Context) error { return s.Start()(ctx) }

func (s *ConfigService) handle(msg *bus.Message) {
	name, _ := msg.Topic.At(2).(string)
	if err := s.Apply(name, msg.Payload, true); err != nil {
		s.log.Warnf("apply %s: %v", name, err)
		s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
		return
	}
	s.conn.Reply(msg, types.OKReply{OK: true}, false)
}

// Apply hands payload to the named actor's SetConfig. Non-string payloads are encoded as
// JSON first.
func (s *ConfigService) Apply(name string, payload any, save bool) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	js, err := encode(payload)
	if err != nil {
		return &errcode.E{C: errcode.InvalidPayload, Op: "config " + name, Err: err}
	}
	if err := c.SetConfig(js, save); err != nil {
		return err
	}
	s.applied(name, c)
	return nil
}

func (s *ConfigService) lookup(name string) (Configurable, error) {
	a, ok := s.reg.Lookup(name)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownActor, Op: "config", Msg: name}
	}
	c, ok := a.(Configurable)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidTopic, Op: "config", Msg: name + " has no settings"}
	}
	return c, nil
}

// applied republishes the current config; a rename moves the retained message.
func (s *ConfigService) applied(oldName string, c Configurable) {
	s.remember(c.ConfigPath())
	newName := c.Description().Name
	if newName != oldName {
		s.conn.Publish(s.conn.NewMessage(CurrentTopic(oldName), nil, true))
	}
	if err := s.publishCurrent(c); err != nil {
		s.log.Warnf("publish %s: %v", newName, err)
	}
	if s.OnApplied != nil {
		s.OnApplied()
	}
}

// remember records the stored content of p so the watcher can ignore the service's own
// writes.
func (s *ConfigService) remember(p string) {
	data, err := s.store.ReadFile(p)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.last[p] = data
	s.mu.Unlock()
}

// known reports whether data is what p held after the last apply.
func (s *ConfigService) known(p, data string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.last[p]
	return ok && last == data
}

// PublishAll publishes the retained current config of every configurable actor.
func (s *ConfigService) PublishAll() error {
	var err error
	for _, a := range s.reg.Actors() {
		if c, ok := a.(Configurable); ok {
			err = multierr.Append(err, s.publishCurrent(c))
		}
	}
	return err
}

func (s *ConfigService) publishCurrent(c Configurable) error {
	js, err := c.GetConfig()
	if err != nil {
		return err
	}
	s.conn.Publish(s.conn.NewMessage(CurrentTopic(c.Description().Name), js, true))
	return nil
}

func encode(p any) (string, error) {
	switch v := p.(type) {
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
