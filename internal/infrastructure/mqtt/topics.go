package mqtt

// TopicPrefix is the root of every topic the service publishes or
// subscribes to.
const TopicPrefix = "buildingdata"

// Topics provides builders for the service's MQTT topics.
type Topics struct{}

// Status returns the retained online/offline status topic.
//
// Example: buildingdata/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// ImportSummary returns the topic carrying the latest import summary.
//
// Example: buildingdata/import/summary
func (Topics) ImportSummary() string {
	return TopicPrefix + "/import/summary"
}

// ImportRequest returns the topic that triggers a re-import.
//
// Example: buildingdata/import/request
func (Topics) ImportRequest() string {
	return TopicPrefix + "/import/request"
}

// Buildings returns the retained topic listing the current building names.
//
// Example: buildingdata/buildings
func (Topics) Buildings() string {
	return TopicPrefix + "/buildings"
}
