package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/dronedispatch/core/events"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// Simulation is the part of the simulation the bridge drives.
type Simulation interface {
	CommandAgent(id string, cmd model.Command) (model.Agent, error)
	Subscribe(topics ...eventbus.Topic) <-chan eventbus.Event
	Unsubscribe(ch <-chan eventbus.Event)
}

// CommandResult is published on <prefix>/drones/<id>/command/result after an
// operator command was applied or rejected.
type CommandResult struct {
	OK    bool         `json:"ok"`
	Error string       `json:"error,omitempty"`
	Drone *model.Agent `json:"drone,omitempty"`
}

// Bridge mirrors the simulation events onto an MQTT broker and accepts drone
// commands from it.
type Bridge struct {
	cli    pahoClient
	cfg    Config
	sim    Simulation
	logger logger.Logger
}

// NewBridge connects to the broker and subscribes to the command topic.
func NewBridge(cfg Config, sim Simulation) (*Bridge, error) {
	if sim == nil {
		return nil, fmt.Errorf("mqtt: nil simulation")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_bridge")
	b := &Bridge{cfg: cfg, sim: sim, logger: log}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		topic := b.CommandTopic("+")
		if token := c.Subscribe(topic, cfg.qos("command"), b.onCommand); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

// EventTopic returns the broker topic an event topic is mirrored to.
func (b *Bridge) EventTopic(t eventbus.Topic) string {
	return b.cfg.TopicPrefix + "/" + string(t)
}

// CommandTopic returns the topic commands for drone id are read from.
func (b *Bridge) CommandTopic(id string) string {
	return b.cfg.TopicPrefix + "/drones/" + id + "/command"
}

// Run forwards every simulation event to the broker until ctx is done, then
// disconnects.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.sim.Subscribe(events.Topics...)
	defer b.sim.Unsubscribe(sub)
	defer b.Disconnect()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			if err := b.publishJSON(b.EventTopic(ev.Topic), b.cfg.qos("events"), ev.Topic == events.TopicFleetUpdate, ev.Payload); err != nil {
				b.logger.Errorf("forward %s: %v", ev.Topic, err)
			}
		}
	}
}

func (b *Bridge) onCommand(_ paho.Client, msg paho.Message) {
	id, ok := b.droneFromTopic(msg.Topic())
	if !ok {
		b.logger.Warnf("ignoring command on %s", msg.Topic())
		return
	}
	var cmd model.Command
	res := CommandResult{}
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		res.Error = fmt.Sprintf("decode command: %v", err)
	} else if agent, err := b.sim.CommandAgent(id, cmd); err != nil {
		res.Error = err.Error()
	} else {
		res.OK = true
		res.Drone = &agent
	}
	if !res.OK {
		b.logger.Warnf("command for %s rejected: %s", id, res.Error)
	}
	if err := b.publishJSON(b.CommandTopic(id)+"/result", b.cfg.qos("command"), false, res); err != nil {
		b.logger.Errorf("publish command result: %v", err)
	}
}

func (b *Bridge) droneFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.cfg.TopicPrefix+"/drones/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/command")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (b *Bridge) publishJSON(topic string, qos byte, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		token := b.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		b.logger.Errorf("publish attempt %d on %s failed: %v", attempt+1, topic, publishErr)
		if attempt < b.cfg.MaxRetries {
			time.Sleep(b.cfg.backoff() * time.Duration(1<<attempt))
		}
	}
	return errors.Join(fmt.Errorf("publish %s", topic), publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (b *Bridge) Disconnect() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}
