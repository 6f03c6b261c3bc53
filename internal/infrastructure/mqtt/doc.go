// Package mqtt publishes bot telemetry to an MQTT broker.
//
// The bot is a producer only. It publishes:
//
//   - alauto/system/status: retained online/offline status, with a Last Will
//     so an unexpected exit is reported by the broker
//   - alauto/stats: retained statistics snapshot, refreshed whenever the
//     scheduler prints its report
//   - alauto/task/{name}: one JSON TaskRun per task invocation
//
// Connections reconnect automatically with exponential backoff bounded by
// the reconnect settings in config.yaml. Publishing while disconnected
// returns ErrNotConnected; callers treat telemetry as best effort.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.Topics{}.Task("combat"), payload, 1, false)
package mqtt
