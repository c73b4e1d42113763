package mqtt

// Topic literals for the home installation. These must match the firmware
// on the sensor and actuator nodes exactly, so they live in one place
// instead of being scattered across handlers.
const (
	// Sensor topics - inbound readings published by the Pi.
	TopicSensorDHT22  = "sensors/dht22"
	TopicSensorMQ2    = "sensors/mq2"
	TopicSensorMotion = "sensors/motion"

	// Control topics - outbound commands to actuators. The actuator
	// firmware subscribes to these; the bridge also subscribes so that
	// commands issued outside the bridge remain observable.
	TopicControlFanSpeed      = "control/fan/speed"
	TopicControlStepperStep   = "control/stepper/step"
	TopicControlLampState     = "control/lamp/state"
	TopicControlLEDBrightness = "control/led/brightness"

	// TopicSystemStatus carries the bridge's online/offline status (LWT).
	TopicSystemStatus = "homelink/system/status"
)

// SensorTopics returns the fixed set of inbound sensor topics.
func SensorTopics() []string {
	return []string{
		TopicSensorDHT22,
		TopicSensorMQ2,
		TopicSensorMotion,
	}
}

// ControlTopics returns the fixed set of outbound control topics.
func ControlTopics() []string {
	return []string{
		TopicControlFanSpeed,
		TopicControlStepperStep,
		TopicControlLampState,
		TopicControlLEDBrightness,
	}
}

// IsSensorTopic reports whether the topic is one of the subscribed sensor topics.
func IsSensorTopic(topic string) bool {
	switch topic {
	case TopicSensorDHT22, TopicSensorMQ2, TopicSensorMotion:
		return true
	}
	return false
}

// IsControlTopic reports whether the topic is one of the control topics.
func IsControlTopic(topic string) bool {
	switch topic {
	case TopicControlFanSpeed, TopicControlStepperStep,
		TopicControlLampState, TopicControlLEDBrightness:
		return true
	}
	return false
}
