// Package kafka connects datapipe to Kafka through segmentio/kafka-go.
//
// Consume steps open readers through a ReaderFactory and commit a message
// only after its resource has been handed to the pipeline. Execution
// reports can be published to a topic with a Publisher. Component ties the
// opened readers and the publisher to the process lifecycle.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "datapipe"
//	  poll_timeout: "500ms"
package kafka
