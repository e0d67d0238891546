package entities

import "time"

// UnmanagedItem is an Item that has not been persisted locally. Recommendations
// and archived items carry one.
type UnmanagedItem struct {
	ID             string             `json:"id"`
	GivenURL       string             `json:"given_url"`
	ResolvedURL    string             `json:"resolved_url,omitempty"`
	Title          string             `json:"title"`
	Language       string             `json:"language,omitempty"`
	TopImageURL    string             `json:"top_image_url,omitempty"`
	TimeToRead     *int               `json:"time_to_read,omitempty"`
	Article        []ArticleComponent `json:"article,omitempty"`
	Excerpt        string             `json:"excerpt,omitempty"`
	Domain         string             `json:"domain,omitempty"`
	DomainMetadata *DomainMetadata    `json:"domain_metadata,omitempty"`
	Authors        []Author           `json:"authors,omitempty"`
	DatePublished  *time.Time         `json:"date_published,omitempty"`
	Images         []string           `json:"images,omitempty"`
}

func (u UnmanagedItem) BestURL() string {
	if u.ResolvedURL != "" {
		return u.ResolvedURL
	}
	return u.GivenURL
}

// ToItem builds a persistable Item from the unmanaged snapshot.
func (u UnmanagedItem) ToItem() *Item {
	item := &Item{
		RemoteID:      u.ID,
		GivenURL:      u.GivenURL,
		ResolvedURL:   u.ResolvedURL,
		Title:         u.Title,
		Domain:        u.Domain,
		Language:      u.Language,
		Excerpt:       u.Excerpt,
		TimeToRead:    u.TimeToRead,
		TopImageURL:   u.TopImageURL,
		Article:       u.Article,
		DatePublished: u.DatePublished,
	}
	if u.DomainMetadata != nil {
		item.DomainMetadata = *u.DomainMetadata
	}
	for n, a := range u.Authors {
		item.Authors = append(item.Authors, Author{
			Position: n,
			AuthorID: a.AuthorID,
			Name:     a.Name,
			URL:      a.URL,
		})
	}
	return item.Clone()
}

type Recommendation struct {
	ID   string        `json:"id"`
	Item UnmanagedItem `json:"item"`
}

type Slate struct {
	ID              string           `json:"id"`
	RequestID       string           `json:"request_id"`
	ExperimentID    string           `json:"experiment_id"`
	Name            string           `json:"name,omitempty"`
	Description     string           `json:"description,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

type SlateLineup struct {
	ID           string  `json:"id"`
	RequestID    string  `json:"request_id"`
	ExperimentID string  `json:"experiment_id"`
	Slates       []Slate `json:"slates"`
}

// ArchivedItem is a read-only projection of an archived saved item as the
// server reports it. It is never cached locally.
type ArchivedItem struct {
	RemoteID   string        `json:"remote_id"`
	URL        string        `json:"url"`
	IsFavorite bool          `json:"is_favorite"`
	Timestamp  time.Time     `json:"timestamp"`
	ArchivedAt *time.Time    `json:"archived_at,omitempty"`
	Item       UnmanagedItem `json:"item"`
}

// RemoteSavedItem is the server's view of one entry in the user's list, as
// returned by a list fetch.
type RemoteSavedItem struct {
	RemoteID   string        `json:"remote_id"`
	URL        string        `json:"url"`
	IsFavorite bool          `json:"is_favorite"`
	IsArchived bool          `json:"is_archived"`
	IsDeleted  bool          `json:"is_deleted,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Item       UnmanagedItem `json:"item"`
}
