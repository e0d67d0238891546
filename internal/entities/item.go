package entities

import "time"

type ComponentType string

const (
	ComponentHeading      ComponentType = "heading"
	ComponentText         ComponentType = "text"
	ComponentImage        ComponentType = "image"
	ComponentCodeBlock    ComponentType = "code_block"
	ComponentBulletedList ComponentType = "bulleted_list"
	ComponentDivider      ComponentType = "divider"
)

// ArticleComponent is one block of a parsed article body. Which fields are
// meaningful depends on Type.
type ArticleComponent struct {
	Type     ComponentType `json:"type"`
	Content  string        `json:"content,omitempty"`  // heading, text, code_block
	Level    int           `json:"level,omitempty"`    // heading
	Source   string        `json:"source,omitempty"`   // image
	Caption  string        `json:"caption,omitempty"`  // image
	Language string        `json:"language,omitempty"` // code_block
	Items    []string      `json:"items,omitempty"`    // bulleted_list
}

type DomainMetadata struct {
	Name string `gorm:"size:256" json:"name,omitempty"`
	Logo string `gorm:"size:2048" json:"logo,omitempty"`
}

func (d DomainMetadata) IsZero() bool {
	return d.Name == "" && d.Logo == ""
}

type Author struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	ItemID   uint   `gorm:"index" json:"-"`
	Position int    `json:"-"`
	AuthorID string `gorm:"size:128" json:"id"`
	Name     string `gorm:"size:256" json:"name"`
	URL      string `gorm:"size:2048" json:"url,omitempty"`
}

// Item is the denormalized remote metadata for a URL. It is owned by exactly
// one SavedItem and is only ever replaced wholesale.
type Item struct {
	ID             uint               `gorm:"primaryKey" json:"-"`
	RemoteID       string             `gorm:"index;size:64" json:"remote_id,omitempty"`
	GivenURL       string             `gorm:"size:2048" json:"given_url"`
	ResolvedURL    string             `gorm:"size:2048" json:"resolved_url,omitempty"`
	Title          string             `gorm:"size:1024" json:"title"`
	Domain         string             `gorm:"size:255" json:"domain,omitempty"`
	Language       string             `gorm:"size:16" json:"language,omitempty"`
	Excerpt        string             `gorm:"type:text" json:"excerpt,omitempty"`
	TimeToRead     *int               `json:"time_to_read,omitempty"`
	TopImageURL    string             `gorm:"size:2048" json:"top_image_url,omitempty"`
	Article        []ArticleComponent `gorm:"serializer:json" json:"article,omitempty"`
	Authors        []Author           `gorm:"foreignKey:ItemID" json:"authors,omitempty"`
	DomainMetadata DomainMetadata     `gorm:"embedded;embeddedPrefix:domain_meta_" json:"domain_metadata"`
	DatePublished  *time.Time         `json:"date_published,omitempty"`
	CreatedAt      time.Time          `json:"-"`
	UpdatedAt      time.Time          `json:"-"`
}

func (Item) TableName() string {
	return "items"
}

func (Author) TableName() string {
	return "authors"
}

// BestURL prefers the resolved URL over the one the user supplied.
func (i *Item) BestURL() string {
	if i.ResolvedURL != "" {
		return i.ResolvedURL
	}
	return i.GivenURL
}

// Clone returns a deep copy that shares no slices with the receiver.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.TimeToRead != nil {
		v := *i.TimeToRead
		c.TimeToRead = &v
	}
	if i.DatePublished != nil {
		v := *i.DatePublished
		c.DatePublished = &v
	}
	if i.Authors != nil {
		c.Authors = append([]Author(nil), i.Authors...)
	}
	if i.Article != nil {
		c.Article = make([]ArticleComponent, len(i.Article))
		for n, comp := range i.Article {
			comp.Items = append([]string(nil), comp.Items...)
			c.Article[n] = comp
		}
	}
	return &c
}
