package overseerr

// searchResponse is the Overseerr mixed search response shape.
type searchResponse struct {
	Page         int            `json:"page"`
	TotalResults int            `json:"totalResults"`
	Results      []searchResult `json:"results"`
}

type searchResult struct {
	ID           int    `json:"id"`
	MediaType    string `json:"mediaType"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"releaseDate"`
	FirstAirDate string `json:"firstAirDate"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"posterPath"`
}

// title returns the display title; movies use "title", series use "name".
func (r searchResult) title() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// year extracts the year from the release or first-air date.
func (r searchResult) year() int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, ch := range date[:4] {
		if ch < '0' || ch > '9' {
			return 0
		}
		year = year*10 + int(ch-'0')
	}
	return year
}

// mediaRequest is the Overseerr request payload.
type mediaRequest struct {
	MediaType string `json:"mediaType"`
	MediaID   int    `json:"mediaId"`
	Seasons   []int  `json:"seasons,omitempty"`
}
