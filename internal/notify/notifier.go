package notify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/importer"
	"schoolattend/internal/messages"
	"schoolattend/internal/metrics"
	"schoolattend/internal/queue"
)

// Sender delivers a text message.
type Sender interface {
	Send(ctx context.Context, mobile, text string) (*SendResult, error)
}

// LogWriter appends to the SMS log.
type LogWriter interface {
	Insert(ctx context.Context, e messages.Entry) (int64, error)
}

// Notifier turns absence messages into texts and logs every attempt.
type Notifier struct {
	sender Sender
	log    LogWriter
}

func NewNotifier(sender Sender, log LogWriter) *Notifier {
	return &Notifier{sender: sender, log: log}
}

// AbsenceText is the message sent to a parent.
func AbsenceText(a queue.Absence) string {
	return fmt.Sprintf("Dear Parent, your ward %s was absent from school on %s.", a.Name, a.Date)
}

// Handle processes one queue message. Delivery failures are logged to the SMS
// log and do not return an error; only log write failures do.
func (n *Notifier) Handle(ctx context.Context, msg queue.Message) error {
	a, err := queue.DecodeAbsence(msg)
	if err != nil {
		return err
	}

	entry := messages.Entry{
		ResidenceID: residenceID(a),
		MobileNo:    importer.NormalizePhone(a.Phone),
		Text:        AbsenceText(a),
	}

	switch res, err := n.send(ctx, entry); {
	case entry.MobileNo == "":
		entry.APIResponse = messages.UserNotFound
		metrics.NotificationsTotal.WithLabelValues("no_phone").Inc()
	case err != nil:
		entry.APIResponse = err.Error()
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
	case !res.Accepted:
		entry.APIResponse = res.Response
		metrics.NotificationsTotal.WithLabelValues("rejected").Inc()
	default:
		entry.APIResponse = res.Response
		entry.Status = 1
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}

	if _, err := n.log.Insert(ctx, entry); err != nil {
		return errors.Wrapf(err, "log notification for student %d", a.StudentID)
	}
	logger.Debug.Printf("student %d notified: status=%d response=%s", a.StudentID, entry.Status, entry.APIResponse)
	return nil
}

func (n *Notifier) send(ctx context.Context, e messages.Entry) (*SendResult, error) {
	if e.MobileNo == "" {
		return nil, nil
	}
	return n.sender.Send(ctx, e.MobileNo, e.Text)
}

// Run handles messages from q until ctx is cancelled or the channel closes.
func (n *Notifier) Run(ctx context.Context, q queue.Queue) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "queue consume init failed")
	}
	for msg := range msgs {
		if msg.Type != queue.TypeAbsence {
			logger.Debug.Printf("skipping message %s of type %s", msg.ID, msg.Type)
			continue
		}
		if err := n.Handle(ctx, msg); err != nil {
			logger.Error.Printf("message %s: %v", msg.ID, err)
		}
	}
	return nil
}

func residenceID(a queue.Absence) string {
	if a.AdmissionNo != "" {
		return a.AdmissionNo
	}
	if a.TagID != "" {
		return a.TagID
	}
	return fmt.Sprintf("%d", a.StudentID)
}
