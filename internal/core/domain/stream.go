package domain

import "time"

// StreamStats accumulates per-session counters. PeakViewers is monotonically
// non-decreasing for the life of one StreamSession and resets only when a new
// session starts.
type StreamStats struct {
	Duration    time.Duration `json:"duration"`
	Messages    int           `json:"messages"`
	Tips        int           `json:"tips"`
	PeakViewers int           `json:"peak_viewers"`
}

// StreamSession is the currently-joined (or currently-broadcast) live stream.
type StreamSession struct {
	ID          StreamID    `json:"id"`
	Title       string      `json:"title"`
	ChannelName string      `json:"channel_name"`
	StartedAt   time.Time   `json:"started_at"`
	Stats       StreamStats `json:"stats"`
	ViewerCount int         `json:"viewer_count"`
}

// ActiveStream is a summary entry in the browseable live-content list.
// Entries are added and removed whole; they are never mutated in place.
type ActiveStream struct {
	ID          StreamID  `json:"id"`
	Title       string    `json:"title"`
	ChannelName string    `json:"channel_name"`
	Creator     string    `json:"creator"`
	CreatorID   UserID    `json:"creator_id"`
	StartedAt   time.Time `json:"started_at"`
	ViewerCount int       `json:"viewer_count"`
}
