package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/cloudtest/pkg/cloud/mqtt"
	"github.com/robotalks/cloudtest/pkg/cloud/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/cloudtest/"
)

func init() {
	if val := os.Getenv("CLOUDTEST_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.Set("logtostderr", "true")
}

func main() {
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		_, kind, _ := mqtt.ParseTopic(topic)
		switch kind {
		case mqtt.TopicStatus:
			glog.Infof("%s: %s", topic, string(payload))
			return
		case mqtt.TopicEvent:
			evt, err := msgs.DecodeEvent(payload)
			if err != nil {
				glog.Warningf("%s: bad event: %v", topic, err)
				return
			}
			glog.Infof("%s: [Event] %s", topic, evt.String())
		case mqtt.TopicFunction:
			call, err := msgs.DecodeFunctionCall(payload)
			if err != nil {
				glog.Warningf("%s: bad call: %v", topic, err)
				return
			}
			glog.Infof("%s: [FunctionCall] %s", topic, call.String())
		case mqtt.TopicResult:
			res, err := msgs.DecodeFunctionResult(payload)
			if err != nil {
				glog.Warningf("%s: bad result: %v", topic, err)
				return
			}
			glog.Infof("%s: [FunctionResult] %s", topic, res.String())
		default:
			glog.Infof("%s: %d bytes", topic, len(payload))
		}
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Exit(token.Error())
	}
	<-(chan struct{})(nil)
}
