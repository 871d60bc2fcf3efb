package models

import "time"

// Post is a feed entry owned by its creator.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"_id"`
	Title     string `gorm:"not null" json:"title"`
	Content   string `gorm:"type:text;not null" json:"content"`
	ImageURL  string `gorm:"not null" json:"imageUrl"`
	CreatorID uint   `gorm:"not null;index" json:"creatorId"`
	// Creator is joined in by the service layer, never stored.
	Creator   *UserSummary `gorm:"-" json:"creator"`
	CreatedAt time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// PostPage is one page of the feed plus the total number of posts.
type PostPage struct {
	Posts      []*Post `json:"posts"`
	TotalItems int64   `json:"totalItems"`
}
