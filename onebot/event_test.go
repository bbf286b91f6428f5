package onebot

import (
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/hitori/message"
)

func TestReceived(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want *message.Received
	}{
		{
			name: "group",
			in: `{"time":1700000000,"self_id":1,"post_type":"message","message_type":"group","sub_type":"normal",
				"message_id":-42,"user_id":10086,"group_id":123456,
				"message":[{"type":"text","data":{"text":".ping"}}],
				"sender":{"user_id":10086,"nickname":"bocchi","card":"ぼっち","role":"member"}}`,
			want: &message.Received{
				Service: Service,
				ID:        "-42",
				Kind:      message.Group,
				To:        "123456",
				Sender:    "10086",
				Group:     "123456",
				Name:      "ぼっち",
				Segments:  []message.Segment{{Kind: message.Text, Text: ".ping"}},
				Timestamp: 1700000000000,
			},
		},
		{
			name: "admin",
			in: `{"post_type":"message","message_type":"group","message_id":1,"user_id":2,"group_id":3,
				"message":[],"sender":{"nickname":"nijika","role":"admin"}}`,
			want: &message.Received{
				Service: Service,
				ID:       "1",
				Kind:     message.Group,
				To:       "3",
				Sender:   "2",
				Group:    "3",
				Name:     "nijika",
				Elevated: true,
				Segments: []message.Segment{},
			},
		},
		{
			name: "owner",
			in: `{"post_type":"message","message_type":"group","message_id":1,"user_id":2,"group_id":3,
				"message":[],"sender":{"nickname":"seika","role":"owner"}}`,
			want: &message.Received{
				Service: Service,
				ID:       "1",
				Kind:     message.Group,
				To:       "3",
				Sender:   "2",
				Group:    "3",
				Name:     "seika",
				Elevated: true,
				Segments: []message.Segment{},
			},
		},
		{
			name: "private",
			in: `{"post_type":"message","message_type":"private","sub_type":"friend","message_id":7,"user_id":8,
				"message":[{"type":"reply","data":{"id":"6"}},{"type":"image","data":{"file":"x.png"}},{"type":"text","data":{"text":"Y"}}],
				"sender":{"user_id":8,"nickname":"ryou"}}`,
			want: &message.Received{
				Service: Service,
				ID:     "7",
				Kind:   message.Private,
				To:     "8",
				Sender: "8",
				Name:   "ryou",
				Segments: []message.Segment{
					{Kind: message.Reply, Ref: "6"},
					{Kind: message.Other, Text: "image"},
					{Kind: message.Text, Text: "Y"},
				},
			},
		},
		{
			name: "numeric-reply",
			in: `{"post_type":"message","message_type":"private","message_id":7,"user_id":8,
				"message":[{"type":"reply","data":{"id":6}}],"sender":{"nickname":"kita"}}`,
			want: &message.Received{
				Service: Service,
				ID:       "7",
				Kind:     message.Private,
				To:       "8",
				Sender:   "8",
				Name:     "kita",
				Segments: []message.Segment{{Kind: message.Reply, Ref: "6"}},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var evt event
			if err := json.Unmarshal([]byte(c.in), &evt); err != nil {
				t.Fatalf("couldn't decode event: %v", err)
			}
			got := evt.received()
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("wrong message (-want +got):\n%s", diff)
			}
		})
	}
}
