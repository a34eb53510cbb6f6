package sonarr

// seriesResource is the Sonarr lookup response shape.
type seriesResource struct {
	Title        string           `json:"title"`
	Year         int              `json:"year"`
	Overview     string           `json:"overview"`
	TvdbID       int              `json:"tvdbId"`
	RemotePoster string           `json:"remotePoster"`
	Images       []image          `json:"images"`
	Seasons      []seasonResource `json:"seasons"`
}

type image struct {
	CoverType string `json:"coverType"`
	RemoteURL string `json:"remoteUrl"`
}

type seasonResource struct {
	SeasonNumber int  `json:"seasonNumber"`
	Monitored    bool `json:"monitored"`
}

func (s seriesResource) posterURL() string {
	if s.RemotePoster != "" {
		return s.RemotePoster
	}
	for _, img := range s.Images {
		if img.CoverType == "poster" {
			return img.RemoteURL
		}
	}
	return ""
}

// seasonCount counts regular seasons, excluding specials (season 0).
func (s seriesResource) seasonCount() int {
	count := 0
	for _, season := range s.Seasons {
		if season.SeasonNumber > 0 {
			count++
		}
	}
	return count
}

// addSeriesRequest is the Sonarr add-series payload.
type addSeriesRequest struct {
	Title            string           `json:"title"`
	TvdbID           int              `json:"tvdbId"`
	QualityProfileID int              `json:"qualityProfileId"`
	RootFolderPath   string           `json:"rootFolderPath"`
	Monitored        bool             `json:"monitored"`
	Seasons          []seasonResource `json:"seasons"`
	AddOptions       struct {
		SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
	} `json:"addOptions"`
}
