package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schoolattend/internal/messages"
	"schoolattend/internal/queue"
)

func TestClientSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"accepted","message_id":"m-1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "SCHOOL", false)
	res, err := c.Send(context.Background(), "9876543210", "hello")
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, "m-1", res.MessageID)
	assert.Equal(t, map[string]string{"sender": "SCHOOL", "to": "9876543210", "text": "hello"}, got)
}

func TestClientSendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "SCHOOL", false).Send(context.Background(), "9876543210", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClientSkipAndHealth(t *testing.T) {
	c := New("http://127.0.0.1:1", "SCHOOL", true)
	res, err := c.Send(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.NoError(t, c.Health(context.Background()))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	assert.Error(t, New(srv.URL, "SCHOOL", false).Health(context.Background()))
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, mobile, text string) (*SendResult, error) {
	args := m.Called(ctx, mobile, text)
	res, _ := args.Get(0).(*SendResult)
	return res, args.Error(1)
}

type MockLog struct {
	mock.Mock
}

func (m *MockLog) Insert(ctx context.Context, e messages.Entry) (int64, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(int64), args.Error(1)
}

func absenceMessage(t *testing.T, a queue.Absence) queue.Message {
	t.Helper()
	msg, err := queue.NewAbsence(a)
	require.NoError(t, err)
	return msg
}

func TestNotifierHandle(t *testing.T) {
	testCases := []struct {
		name     string
		absence  queue.Absence
		sendRes  *SendResult
		sendErr  error
		wantLog  messages.Entry
		wantSend bool
	}{
		{
			name:     "sent",
			absence:  queue.Absence{StudentID: 1, AdmissionNo: "A1", Name: "Asha", Phone: "98765 43210", Date: "2024-06-03"},
			sendRes:  &SendResult{Accepted: true, Response: "OK"},
			wantSend: true,
			wantLog: messages.Entry{
				ResidenceID: "A1", MobileNo: "9876543210", APIResponse: "OK", Status: 1,
				Text: "Dear Parent, your ward Asha was absent from school on 2024-06-03.",
			},
		},
		{
			name:     "gateway failure",
			absence:  queue.Absence{StudentID: 2, TagID: "T2", Name: "Bala", Phone: "9876543211", Date: "2024-06-03"},
			sendErr:  errors.New("sms gateway unavailable"),
			wantSend: true,
			wantLog: messages.Entry{
				ResidenceID: "T2", MobileNo: "9876543211", APIResponse: "sms gateway unavailable", Status: 0,
				Text: "Dear Parent, your ward Bala was absent from school on 2024-06-03.",
			},
		},
		{
			name:    "no phone",
			absence: queue.Absence{StudentID: 3, Name: "Chitra", Date: "2024-06-03"},
			wantLog: messages.Entry{
				ResidenceID: "3", APIResponse: messages.UserNotFound, Status: 0,
				Text: "Dear Parent, your ward Chitra was absent from school on 2024-06-03.",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender, log := new(MockSender), new(MockLog)
			if tc.wantSend {
				sender.On("Send", mock.Anything, tc.wantLog.MobileNo, tc.wantLog.Text).Return(tc.sendRes, tc.sendErr)
			}
			log.On("Insert", mock.Anything, tc.wantLog).Return(int64(1), nil)

			err := NewNotifier(sender, log).Handle(context.Background(), absenceMessage(t, tc.absence))
			require.NoError(t, err)
			sender.AssertExpectations(t)
			log.AssertExpectations(t)
			if !tc.wantSend {
				sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestNotifierHandleLogFailure(t *testing.T) {
	sender, log := new(MockSender), new(MockLog)
	log.On("Insert", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	err := NewNotifier(sender, log).Handle(context.Background(), absenceMessage(t, queue.Absence{StudentID: 4}))
	assert.Error(t, err)
}

func TestNotifierRunDrainsQueue(t *testing.T) {
	q := queue.NewInMemory(4)
	sender, log := new(MockSender), new(MockLog)
	sender.On("Send", mock.Anything, "9876543210", mock.Anything).Return(&SendResult{Accepted: true, Response: "OK"}, nil)
	inserted := make(chan struct{}, 1)
	log.On("Insert", mock.Anything, mock.Anything).Return(int64(1), nil).Run(func(mock.Arguments) {
		inserted <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Publish(ctx, queue.Message{ID: "x", Type: "other"}))
	require.NoError(t, q.Publish(ctx, absenceMessage(t, queue.Absence{StudentID: 1, Phone: "9876543210"})))

	done := make(chan struct{})
	go func() {
		_ = NewNotifier(sender, log).Run(ctx, q)
		close(done)
	}()

	select {
	case <-inserted:
	case <-time.After(time.Second):
		t.Fatal("absence was not logged")
	}
	cancel()
	<-done
	sender.AssertNumberOfCalls(t, "Send", 1)
}
