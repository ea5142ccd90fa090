// Package mqtt provides MQTT connectivity for the building data service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing import summaries with QoS guarantees
//   - The import request subscription (remote re-import trigger)
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
//	buildingdata/status           retained online/offline status (LWT)
//	buildingdata/import/summary   retained summary of the latest import
//	buildingdata/import/request   any message triggers a re-import
//	buildingdata/buildings        retained sorted list of building names
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.ImportSummary(), summary, true)
package mqtt
