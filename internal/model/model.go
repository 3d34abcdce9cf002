package model

import "time"

// Event is a single concrete calendar entry as stored after sync
// (recurrences already expanded). Times are milliseconds since epoch.
type Event struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	// UID is the iCalendar UID the event was expanded from.
	UID string `json:"uid,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`

	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
	AllDay    bool  `json:"allDay,omitempty"`

	// CalendarColor is joined in from the owning calendar; rendering only.
	CalendarColor string `json:"calendarColor,omitempty"`
	LastSynced    int64  `json:"lastSynced,omitempty"`
}

// Start returns StartTime as a time.Time in loc.
func (e Event) Start(loc *time.Location) time.Time {
	return time.UnixMilli(e.StartTime).In(loc)
}

// End returns EndTime as a time.Time in loc.
func (e Event) End(loc *time.Location) time.Time {
	return time.UnixMilli(e.EndTime).In(loc)
}

// PositionedEvent is an Event annotated with its column inside the
// overlap cluster it belongs to for one day.
type PositionedEvent struct {
	Event
	Column       int `json:"column"`
	TotalColumns int `json:"totalColumns"`
}

// Calendar is a subscribed ICS feed owned by a user.
type Calendar struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	ICalURL    string `json:"icalUrl"`
	Color      string `json:"color,omitempty"`
	LastSynced int64  `json:"lastSynced"`
}

// Page is a workspace document.
type Page struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	CoverImage  string `json:"coverImage,omitempty"`
	Content     string `json:"content"`
	IsFavorite  bool   `json:"isFavorite"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// PagePatch carries the optional fields of a page update.
type PagePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
	Content     *string `json:"content,omitempty"`
	IsFavorite  *bool   `json:"isFavorite,omitempty"`
}

// Block types used by the editor.
const (
	BlockHeading    = "heading"
	BlockParagraph  = "paragraph"
	BlockChecklist  = "checklist"
	BlockTable      = "table"
	BlockGallery    = "gallery"
	BlockImage      = "image"
	BlockBulletList = "bullet-list"
)

// BlockMetadata is the optional per-block rendering state.
type BlockMetadata struct {
	Checked   *bool   `json:"checked,omitempty"`
	Level     *int    `json:"level,omitempty"`
	Alignment *string `json:"alignment,omitempty"`
}

// Block is one ordered content element of a page.
type Block struct {
	ID       string         `json:"id"`
	PageID   string         `json:"pageId"`
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Order    float64        `json:"order"`
	Metadata *BlockMetadata `json:"metadata,omitempty"`
}

// BlockPatch carries the optional fields of a block update.
type BlockPatch struct {
	Type     *string        `json:"type,omitempty"`
	Content  *string        `json:"content,omitempty"`
	Metadata *BlockMetadata `json:"metadata,omitempty"`
}
