package domain

import "time"

// Notice is the normalized posting every source adapter produces.
type Notice struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	SourceID  string    `json:"source_id"`
}

// Key returns the dedup key of the notice.
func (n Notice) Key() string {
	return DedupKey(n.Link, n.Title)
}

type Policy string

const (
	PolicyCursor   Policy = "cursor"
	PolicySnapshot Policy = "snapshot"
)

func (p Policy) Valid() bool {
	return p == PolicyCursor || p == PolicySnapshot
}

type DestinationKind string

const (
	KindGroupChannel  DestinationKind = "group_channel"
	KindDirectMessage DestinationKind = "direct_message"
)

func (k DestinationKind) Valid() bool {
	return k == KindGroupChannel || k == KindDirectMessage
}

type Destination struct {
	ID            string          `json:"id"`
	Kind          DestinationKind `json:"kind"`
	DisplayName   string          `json:"display_name"`
	OwningGroup   string          `json:"owning_group,omitempty"` // guild name for group channels
	Subscriptions []string        `json:"subscriptions,omitempty"`
}
