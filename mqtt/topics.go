package mqtt

import "strings"

const DefaultTopicPrefix = "beatbox"

// Topics lays out the MQTT topics used to talk to one device:
//
//	<prefix>/<device>/command/<name>  client -> device, payload is the argument
//	<prefix>/<device>/reply/<name>    device -> client, payload is the reply
type Topics struct {
	Prefix   string
	DeviceId string
}

func NewTopics(prefix, deviceId string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix, DeviceId: deviceId}
}

func (t Topics) base() string {
	return t.Prefix + "/" + t.DeviceId
}

func (t Topics) Command(name string) string {
	return t.base() + "/command/" + name
}

func (t Topics) Reply(name string) string {
	return t.base() + "/reply/" + name
}

func (t Topics) CommandFilter() string {
	return t.Command("+")
}

func (t Topics) ReplyFilter() string {
	return t.Reply("+")
}

// DeviceFilter matches every topic that belongs to the device.
func (t Topics) DeviceFilter() string {
	return t.base() + "/#"
}

func (t Topics) ParseCommand(topic string) (string, bool) {
	return t.parse(topic, "/command/")
}

func (t Topics) ParseReply(topic string) (string, bool) {
	return t.parse(topic, "/reply/")
}

func (t Topics) parse(topic, kind string) (string, bool) {
	name, ok := strings.CutPrefix(topic, t.base()+kind)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
