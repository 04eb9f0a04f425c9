package mqtt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/sungrow2venus/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"

	MQTT_COMMAND_EXPORT_LIMIT = "export_limit"

	BRIDGE_NAME = "sungrow2venus"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("%s_%s", BRIDGE_NAME, uuid.NewString()[:8]))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.PortalId)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                   mqtt.NewClient(opts),
		cfg:                      cfg.MQTT,
		exportLimitCommandRegexp: exportLimitCommandExtractor(cfg.MQTT.PortalId),
	}
}

type MQTTClient struct {
	client                   mqtt.Client
	cfg                      config.MQTTConfig
	exportLimitCommandRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	Command string
	Value   float64
}

func (c *MQTTClient) portalId() string {
	return c.cfg.PortalId
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.portalId())
}

// NotificationTopic is the dbus-mqtt topic of a service path,
// e.g. N/<portal_id>/pvinverter/20/Ac/Power.
func (c *MQTTClient) NotificationTopic(serviceType string, deviceInstance uint, path string) string {
	return notificationTopic(c.portalId(), serviceType, deviceInstance, path)
}

func (c *MQTTClient) ExportLimitCommandTopic() string {
	return fmt.Sprintf("W/%s/%s/export_limit/set", c.portalId(), BRIDGE_NAME)
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return parseExportLimitCommand(c.exportLimitCommandRegexp, msg.Topic(), msg.Payload())
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.ExportLimitCommandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func parseExportLimitCommand(r *regexp.Regexp, topic string, payload []byte) (*ParsedMQTTCommand, error) {
	if !r.MatchString(topic) {
		return nil, errors.New("invalid command")
	}
	// try to parse a valid number
	value, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return nil, err
	}
	return &ParsedMQTTCommand{
		Command: MQTT_COMMAND_EXPORT_LIMIT,
		Value:   value,
	}, nil
}

func exportLimitCommandExtractor(portalId string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^W/%s/%s/export_limit/set$", regexp.QuoteMeta(portalId), BRIDGE_NAME))
}

func notificationTopic(portalId string, serviceType string, deviceInstance uint, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("N/%s/%s/%d%s", portalId, serviceType, deviceInstance, path)
}

func ExportLimitStateTopic(portalId string) string {
	return fmt.Sprintf("N/%s/%s/export_limit/state", portalId, BRIDGE_NAME)
}

func bridgeStateTopic(portalId string) string {
	return fmt.Sprintf("N/%s/%s/bridge/state", portalId, BRIDGE_NAME)
}
