package notify

import (
	"context"
	"log"

	"qrattend/internal/queue"
)

// Run consumes guardian-notification messages until ctx is canceled. Used by
// the standalone worker in networked mode and run in-process when the queue
// backend is in-memory.
func Run(ctx context.Context, q queue.Queue, mailer *Mailer) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != MessageType {
			continue
		}
		evt, err := Decode(msg)
		if err != nil {
			log.Printf("notification decode failed: %v", err)
			continue
		}
		if mailer == nil {
			log.Printf("notification for %s dropped: SMTP not configured", evt.StudentName)
			continue
		}
		if err := mailer.Send(evt); err != nil {
			log.Printf("notification send failed: %v", err)
			continue
		}
		log.Printf("notified guardian of %s (%s)", evt.StudentName, evt.Status)
	}
	return nil
}
