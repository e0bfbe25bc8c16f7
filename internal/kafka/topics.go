package kafka

import (
	"log"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicTicketIssued   = "eventless.ticket.issued"
	TopicTicketRedeemed = "eventless.ticket.redeemed"
	TopicEventApproved  = "eventless.event.approved"
)

// Topics lists every topic this service publishes to.
func Topics() []string {
	return []string{TopicTicketIssued, TopicTicketRedeemed, TopicEventApproved}
}

// EnsureTopicsExist creates the given topics if the cluster does not
// already have them.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			// "already exists" is fine; keep going for the rest.
			log.Printf("Error creating topic %s: %v", topic, err)
		}
	}

	// Give the controller a moment to propagate new topics.
	time.Sleep(1 * time.Second)
	return nil
}
