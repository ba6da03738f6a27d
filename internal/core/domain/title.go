package domain

import "time"

type Title struct {
	ID            int64
	Name          string
	Creator       string
	Category      string
	PublishedOn   time.Time
	ShelfLocation string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTitle is the input for cataloguing a title together with its copies.
type NewTitle struct {
	Name          string
	Creator       string
	Category      string
	PublishedOn   time.Time
	ShelfLocation string
	Copies        int
}

// TitleUpdate carries a partial edit; nil fields are left unchanged.
type TitleUpdate struct {
	ID            int64
	Name          *string
	Creator       *string
	Category      *string
	PublishedOn   *time.Time
	ShelfLocation *string
}

func (u TitleUpdate) Apply(t *Title) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Creator != nil {
		t.Creator = *u.Creator
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.PublishedOn != nil {
		t.PublishedOn = *u.PublishedOn
	}
	if u.ShelfLocation != nil {
		t.ShelfLocation = *u.ShelfLocation
	}
}

type TitleDetail struct {
	Title
	Copies []Copy
}

// TitleFilter matches case-insensitive substrings; empty fields match everything.
type TitleFilter struct {
	Name        string
	Creator     string
	Category    string
	PublishedOn *time.Time
}
