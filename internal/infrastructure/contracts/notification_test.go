package contracts

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotificationMessage(t *testing.T) {
	msg, err := DecodeNotificationMessage([]byte(`{
		"title": "New reply",
		"sender": "bob",
		"user_id": 7,
		"notification": "nice track",
		"relevance": "high",
		"extra": {"ignored": true}
	}`))
	require.NoError(t, err)

	assert.Equal(t, &NotificationMessage{
		Title:        "New reply",
		Sender:       "bob",
		UserID:       7,
		Notification: "nice track",
		Relevance:    domain.RelevanceHigh,
	}, msg)
}

func TestDecodeNotificationMessageDefaultsRelevanceToLow(t *testing.T) {
	msg, err := DecodeNotificationMessage([]byte(`{"title":"t","sender":"s","user_id":1,"notification":"n"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.RelevanceLow, msg.Relevance)
}

func TestDecodeNotificationMessageAcceptsNumericStringUserID(t *testing.T) {
	msg, err := DecodeNotificationMessage([]byte(`{"title":"t","sender":"s","user_id":"42","notification":"n"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.UserID)
}

func TestDecodeNotificationMessageMalformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"title":`, `[1,2]`, `"abc"`, `null`} {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeNotificationMessage([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestDecodeNotificationMessageSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{
			name:   "user_id is not an integer",
			body:   `{"title":"t","sender":"s","user_id":"abc","notification":"n"}`,
			fields: []string{"user_id"},
		},
		{
			name:   "user_id is fractional",
			body:   `{"title":"t","sender":"s","user_id":1.5,"notification":"n"}`,
			fields: []string{"user_id"},
		},
		{
			name:   "user_id missing",
			body:   `{"title":"t","sender":"s","notification":"n"}`,
			fields: []string{"user_id"},
		},
		{
			name:   "unknown relevance",
			body:   `{"title":"t","sender":"s","user_id":1,"notification":"n","relevance":"urgent"}`,
			fields: []string{"relevance"},
		},
		{
			name:   "wrong types and missing strings",
			body:   `{"title":5,"sender":null,"user_id":1}`,
			fields: []string{"notification", "sender", "title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNotificationMessage([]byte(tt.body))
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrMalformedMessage))

			var fes validate.FieldErrors
			require.True(t, errors.As(err, &fes))

			got := make([]string, 0, len(fes))
			for _, fe := range fes {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestNotificationMessageEncodesWireNames(t *testing.T) {
	body, err := json.Marshal(NotificationMessage{
		Title:        "Song milestone",
		Sender:       "Encore",
		UserID:       3,
		Notification: "Intro reached 10 plays",
		Relevance:    domain.RelevanceMedium,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"title": "Song milestone",
		"sender": "Encore",
		"user_id": 3,
		"notification": "Intro reached 10 plays",
		"relevance": "medium"
	}`, string(body))
}
