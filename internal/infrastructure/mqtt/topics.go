package mqtt

// TopicPrefix is the root of every topic the bot publishes.
const TopicPrefix = "alauto"

// Topics provides builders for the bot's MQTT topics.
//
//	alauto/system/status   retained online/offline (LWT)
//	alauto/stats           retained run statistics snapshot
//	alauto/task/{name}     one message per task run
type Topics struct{}

// SystemStatus returns the topic carrying online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// Stats returns the topic carrying the retained statistics snapshot.
func (Topics) Stats() string {
	return TopicPrefix + "/stats"
}

// Task returns the topic for run events of the named task.
//
// Example: alauto/task/retirement
func (Topics) Task(name string) string {
	return TopicPrefix + "/task/" + name
}

// AllTasks returns a wildcard matching every task topic.
func (Topics) AllTasks() string {
	return TopicPrefix + "/task/+"
}

// AllTopics returns a wildcard matching everything the bot publishes.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
