package meeting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWherebyCreateMeeting(t *testing.T) {
	start := time.Date(2030, time.March, 4, 10, 0, 0, 0, time.UTC)

	var got CreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/meetings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Meeting{
			MeetingID:   "m-1",
			RoomURL:     "https://rooms.example/ollie-1",
			HostRoomURL: "https://rooms.example/ollie-1?roomKey=k",
		})
	}))
	defer srv.Close()

	c := NewWherebyClient(srv.URL+"/", "secret", time.Second, zap.NewNop())
	m, err := c.CreateMeeting(context.Background(), CreateRequest{
		StartDate:      start,
		EndDate:        start.Add(30 * time.Minute),
		RoomNamePrefix: "ollie-1",
		IsLocked:       true,
		RoomMode:       RoomModeNormal,
		Fields:         []string{FieldHostRoomURL},
	})

	require.NoError(t, err)
	assert.Equal(t, "m-1", m.MeetingID)
	assert.Equal(t, "https://rooms.example/ollie-1?roomKey=k", m.HostRoomURL)
	assert.Equal(t, "ollie-1", got.RoomNamePrefix)
	assert.True(t, got.IsLocked)
	assert.Equal(t, []string{FieldHostRoomURL}, got.Fields)
}

func TestWherebyCreateMeetingRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewWherebyClient(srv.URL, "secret", time.Second, zap.NewNop())
	_, err := c.CreateMeeting(context.Background(), CreateRequest{RoomNamePrefix: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestWherebyDeleteMeeting(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{"no content", http.StatusNoContent, true, false},
		{"already gone", http.StatusNotFound, true, false},
		{"server error", http.StatusBadGateway, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/meetings/m-42", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewWherebyClient(srv.URL, "secret", time.Second, zap.NewNop())
			ok, err := c.DeleteMeeting(context.Background(), "m-42")

			assert.Equal(t, tt.want, ok)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDisabledProvider(t *testing.T) {
	p := Disabled()

	_, err := p.CreateMeeting(context.Background(), CreateRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	ok, err := p.DeleteMeeting(context.Background(), "m")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
