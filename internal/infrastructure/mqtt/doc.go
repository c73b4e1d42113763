// Package mqtt provides MQTT client connectivity for HomeLink Bridge.
//
// This package manages:
//   - Connection to the local broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions restored across reconnects
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the field bus of the installation: sensor nodes publish readings
// on the sensors/* topics and actuator nodes consume plain-text commands on
// the control/* topics. The bridge sits between this bus and the web
// clients.
//
//	Sensor/actuator nodes ↔ MQTT Broker ↔ HomeLink Bridge ↔ Web clients
//
// Delivery is at-least-once at QoS 1; the adapter performs no
// deduplication and gives no ordering guarantee across topics.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.TopicSensorDHT22, 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.PublishString(mqtt.TopicControlFanSpeed, "50", 1, false)
package mqtt
