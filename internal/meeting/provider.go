// Package meeting provisions and tears down video rooms for virtual
// appointments.
package meeting

import (
	"context"
	"errors"
	"time"
)

var ErrNotConfigured = errors.New("meeting provider is not configured")

const (
	RoomModeNormal = "normal"
	RoomModeGroup  = "group"

	FieldHostRoomURL = "hostRoomUrl"
)

type CreateRequest struct {
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	RoomNamePrefix string    `json:"roomNamePrefix"`
	IsLocked       bool      `json:"isLocked"`
	RoomMode       string    `json:"roomMode"`
	Fields         []string  `json:"fields,omitempty"`
}

type Meeting struct {
	MeetingID   string    `json:"meetingId"`
	RoomURL     string    `json:"roomUrl"`
	HostRoomURL string    `json:"hostRoomUrl"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// Provider is the video-room collaborator. DeleteMeeting reports true only
// when the room is confirmed gone.
type Provider interface {
	CreateMeeting(ctx context.Context, req CreateRequest) (*Meeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) (bool, error)
}

type disabled struct{}

// Disabled is used when no provider credentials are configured.
func Disabled() Provider { return disabled{} }

func (disabled) CreateMeeting(context.Context, CreateRequest) (*Meeting, error) {
	return nil, ErrNotConfigured
}

func (disabled) DeleteMeeting(context.Context, string) (bool, error) {
	return false, ErrNotConfigured
}
