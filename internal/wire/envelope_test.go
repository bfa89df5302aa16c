package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himalthapa1/EduConnect/internal/chat"
)

func TestEncodeDecode(t *testing.T) {
	frame, err := Encode(EventMessageDeleted, MessageDeletedData{MessageID: 4, RoomID: "group:1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message-deleted","data":{"messageId":4,"roomId":"group:1"}}`, string(frame))

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, EventMessageDeleted, env.Type)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestErrorFrame(t *testing.T) {
	assert.JSONEq(t, `{"type":"error","data":{"message":"Access denied"}}`, string(ErrorFrame("Access denied")))
}

func TestNewMessageViewPoll(t *testing.T) {
	state := chat.NewPollState(9, chat.Poll{Question: "Lunch?", Options: []string{"pizza", "sushi"}})
	require.NoError(t, state.Vote(2, 1))
	msg := chat.Message{
		ID:        9,
		Target:    chat.GroupTarget(1),
		SenderID:  2,
		Payload:   chat.Poll{Question: "Lunch?", Options: []string{"pizza", "sushi"}},
		Poll:      state,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	b, err := json.Marshal(NewMessageView(msg, chat.Profile{ID: 2, Username: "ana"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"_id": 9, "roomId": "group:1", "type": "poll", "content": "Lunch?",
		"poll": {"question": "Lunch?", "totalVotes": 1, "options": [
			{"text": "pizza", "voteCount": 0, "voters": []},
			{"text": "sushi", "voteCount": 1, "voters": [2]}]},
		"sender": {"_id": 2, "username": "ana"},
		"createdAt": "2024-01-02T03:04:05Z"}`, string(b))
}

func TestNewMessageViewVoice(t *testing.T) {
	msg := chat.Message{ID: 1, Target: chat.SessionTarget(3), Payload: chat.Voice{AudioRef: "a.webm", Caption: "Voice message"}}
	v := NewMessageView(msg, chat.Profile{ID: 1, Username: "bo"})
	assert.Equal(t, "a.webm", v.AudioRef)
	assert.Equal(t, "Voice message", v.Content)
	assert.Equal(t, chat.RoomID("session:3"), v.RoomID)
	assert.Nil(t, v.Poll)
}

func TestTargetDataRoomKind(t *testing.T) {
	var d SendMessageData
	require.NoError(t, json.Unmarshal([]byte(`{"chatType":"session","sessionId":5,"content":"hi"}`), &d))
	assert.Equal(t, "session", d.RoomKind())
	assert.Equal(t, uint(5), d.SessionID)

	assert.Equal(t, "group", TargetData{Kind: "group", Type: "session"}.RoomKind())
	assert.Equal(t, "group", TargetData{Type: "group"}.RoomKind())
}

func TestSendMessageDataPayload(t *testing.T) {
	tests := []struct {
		name string
		data SendMessageData
		want chat.Payload
	}{
		{"default text", SendMessageData{Content: "hi"}, chat.Text{Body: "hi"}},
		{"voice caption", SendMessageData{MessageType: "voice", AudioRef: "a.webm", Content: "listen"}, chat.Voice{AudioRef: "a.webm", Caption: "listen"}},
		{"poll question from content", SendMessageData{MessageType: "poll", Content: "When?", Poll: &PollData{Options: []string{"Mon", "Tue"}}}, chat.Poll{Question: "When?", Options: []string{"Mon", "Tue"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.data.Payload()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SendMessageData{MessageType: "poll"}.Payload()
	assert.ErrorIs(t, err, chat.ErrValidation)
	_, err = SendMessageData{MessageType: "video"}.Payload()
	assert.ErrorIs(t, err, chat.ErrValidation)
}

func TestNewMessageViewsUnknownSender(t *testing.T) {
	msgs := []chat.Message{
		{ID: 1, Target: chat.GroupTarget(1), SenderID: 4, Payload: chat.Text{Body: "a"}},
		{ID: 2, Target: chat.GroupTarget(1), SenderID: 5, Payload: chat.Text{Body: "b"}},
		{ID: 3, Target: chat.GroupTarget(1), SenderID: 4, Payload: chat.Text{Body: "c"}},
	}
	assert.Equal(t, []uint{4, 5}, SenderIDs(msgs))

	views := NewMessageViews(msgs, map[uint]chat.Profile{4: {ID: 4, Username: "ana"}})
	require.Len(t, views, 3)
	assert.Equal(t, "ana", views[0].Sender.Username)
	assert.Equal(t, SenderView{ID: 5, Username: UnknownSender}, views[1].Sender)
	assert.Equal(t, "c", views[2].Content)
}
