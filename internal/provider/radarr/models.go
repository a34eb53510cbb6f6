package radarr

// movieResource is the Radarr lookup response shape.
type movieResource struct {
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Overview string  `json:"overview"`
	TmdbID   int     `json:"tmdbId"`
	Images   []image `json:"images"`
}

type image struct {
	CoverType string `json:"coverType"`
	RemoteURL string `json:"remoteUrl"`
}

func (m movieResource) posterURL() string {
	for _, img := range m.Images {
		if img.CoverType == "poster" {
			return img.RemoteURL
		}
	}
	return ""
}

// addMovieRequest is the Radarr add-movie payload.
type addMovieRequest struct {
	Title            string `json:"title"`
	Year             int    `json:"year,omitempty"`
	TmdbID           int    `json:"tmdbId"`
	QualityProfileID int    `json:"qualityProfileId"`
	RootFolderPath   string `json:"rootFolderPath"`
	Monitored        bool   `json:"monitored"`
	AddOptions       struct {
		SearchForMovie bool `json:"searchForMovie"`
	} `json:"addOptions"`
}
