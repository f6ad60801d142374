// Package mqtt publishes Hue Logic events onto an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publish-only event mirroring with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Hue Logic is the sole writer on its topics: every confirmed bridge
// mutation, cache reload, and snapshot operation is mirrored as an MQTT
// event so dashboards and home-automation glue can observe programming
// changes without polling the bridge. The client never subscribes;
// command flow stays on the REST surface.
//
//	Hue Logic --publish--> MQTT Broker --> observers
//
// # Security Considerations
//
//   - TLS is recommended for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	mirror := mqtt.NewMirror(client, byte(cfg.MQTT.QoS))
//	cache.SetEvents(mirror)
package mqtt
