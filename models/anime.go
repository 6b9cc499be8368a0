package models

// Anime is the catalog entry subset AniView renders. Field names follow the
// upstream catalog API payloads.
type Anime struct {
	MalID        int         `json:"mal_id"`
	URL          string      `json:"url,omitempty"`
	Title        string      `json:"title"`
	TitleEnglish string      `json:"title_english,omitempty"`
	Synopsis     string      `json:"synopsis,omitempty"`
	Type         string      `json:"type,omitempty"`
	Episodes     int         `json:"episodes,omitempty"`
	Status       string      `json:"status,omitempty"`
	Score        float64     `json:"score,omitempty"`
	Year         int         `json:"year,omitempty"`
	Images       AnimeImages `json:"images"`
	Genres       []Genre     `json:"genres,omitempty"`
}

// AnimeImages groups the poster variants offered by the catalog.
type AnimeImages struct {
	JPG  ImageSet `json:"jpg"`
	WebP ImageSet `json:"webp"`
}

// ImageSet holds the sizes available for one image format.
type ImageSet struct {
	ImageURL      string `json:"image_url,omitempty"`
	SmallImageURL string `json:"small_image_url,omitempty"`
	LargeImageURL string `json:"large_image_url,omitempty"`
}

// Genre is a catalog genre tag.
type Genre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

// Pagination mirrors the catalog API paging envelope.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page"`
}
