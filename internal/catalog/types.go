package catalog

// MediaType scopes catalog lookups.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// SearchOptions narrows a search. Zero values mean unscoped.
type SearchOptions struct {
	MediaType MediaType
	Year      int
}

// SearchResult is a single search candidate.
type SearchResult struct {
	ID          int       `json:"id"`
	MediaType   MediaType `json:"media_type"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	Overview    string    `json:"overview"`
	PosterPath  string    `json:"poster_path"`
	VoteAverage float64   `json:"vote_average"`
}

// Details is a tagged variant: exactly one of Movie or TV is set, matching Type.
type Details struct {
	Type  MediaType
	Movie *MovieDetails
	TV    *TVDetails
}

// Genre represents a catalog genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails represents detailed movie information
type MovieDetails struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	Runtime      int     `json:"runtime"`
	VoteAverage  float64 `json:"vote_average"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Genres       []Genre `json:"genres"`
}

// TVDetails represents detailed TV series information
type TVDetails struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Overview         string          `json:"overview"`
	FirstAirDate     string          `json:"first_air_date"`
	VoteAverage      float64         `json:"vote_average"`
	PosterPath       string          `json:"poster_path"`
	BackdropPath     string          `json:"backdrop_path"`
	NumberOfSeasons  int             `json:"number_of_seasons"`
	NumberOfEpisodes int             `json:"number_of_episodes"`
	Genres           []Genre         `json:"genres"`
	Seasons          []SeasonSummary `json:"seasons"`
}

// SeasonSummary is the per-season entry embedded in TV details.
type SeasonSummary struct {
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
}

// Episode is one entry of a season listing. Runtime is nil when unknown.
type Episode struct {
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	Runtime       *int   `json:"runtime"`
}

type seasonResponse struct {
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// searchResponse mirrors the paged search payload. Movie results carry
// title/release_date, TV results name/first_air_date.
type searchResponse struct {
	Page         int               `json:"page"`
	TotalResults int               `json:"total_results"`
	Results      []rawSearchResult `json:"results"`
}

type rawSearchResult struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
}

type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
