package posts

import "time"

// Status is the lifecycle state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusTrashed   Status = "trashed"
)

// Post represents a blog post.
type Post struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Excerpt         string     `json:"excerpt"`
	Body            string     `json:"body"`
	Status          Status     `json:"status"`
	AuthorID        int64      `json:"author_id"`
	CategoryID      *int64     `json:"category_id,omitempty"`
	FeaturedMediaID *int64     `json:"featured_media_id,omitempty"`
	TagIDs          []int64    `json:"tag_ids"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
}

// ListFilter narrows post listings.
type ListFilter struct {
	Status     Status
	CategoryID int64
	TagID      int64
	Page       int
	PerPage    int
}
