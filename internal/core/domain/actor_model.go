package domain

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"
)

// device actors are named after their DeviceKind
const (
	ACTOR_ID_MASTER = "master"
	ACTOR_ID_MODBUS = "modbus"
	ACTOR_ID_MQTT   = "mqtt"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
	Device DeviceKind
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	Info *DeviceInfo
}

type PollDeviceRequest struct {
	ActorRequestMixIn
	Device DeviceKind
}

type PollDeviceResponse struct {
	ActorResponseMixIn
	Outcome *PollOutcome
}

type GetDeviceStateRequest struct {
	ActorRequestMixIn
	Device DeviceKind
}

type GetDeviceStateResponse struct {
	ActorResponseMixIn
	State *DeviceState
}

type GetExportLimitRequest struct {
	ActorRequestMixIn
}

type GetExportLimitResponse struct {
	ActorResponseMixIn
	Limit *sungrow_modbus.ExportLimit
}

type SetExportLimitRequest struct {
	ActorRequestMixIn
	Percent float64
}

type SetExportLimitResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// PublishPathRequest carries one encoded path update to the MQTT actor.
type PublishPathRequest struct {
	ServiceType    string
	DeviceInstance uint
	Path           string
	Payload        []byte
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}
