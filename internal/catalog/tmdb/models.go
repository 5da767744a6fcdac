package tmdb

// DiscoverResponse is the response from TMDB movie discover.
type DiscoverResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is a movie from TMDB discover results.
type MovieResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
	Adult        bool    `json:"adult"`
	GenreIDs     []int64 `json:"genre_ids"`
}

// MovieDetails is the detailed movie info from TMDB.
type MovieDetails struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Overview     string       `json:"overview"`
	ReleaseDate  string       `json:"release_date"`
	PosterPath   *string      `json:"poster_path"`
	BackdropPath *string      `json:"backdrop_path"`
	VoteAverage  float64      `json:"vote_average"`
	VoteCount    int          `json:"vote_count"`
	Popularity   float64      `json:"popularity"`
	Runtime      int          `json:"runtime"`
	Status       string       `json:"status"`
	Tagline      string       `json:"tagline"`
	ImdbID       string       `json:"imdb_id"`
	Genres       []GenreEntry `json:"genres"`
}

// GenreEntry represents a genre from TMDB.
type GenreEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GenreListResponse is the response from TMDB /genre/movie/list.
type GenreListResponse struct {
	Genres []GenreEntry `json:"genres"`
}

// WatchProvidersResponse is the response from TMDB /movie/{id}/watch/providers.
type WatchProvidersResponse struct {
	ID      int64                            `json:"id"`
	Results map[string]RegionWatchProviders `json:"results"`
}

// RegionWatchProviders holds the providers for a single region.
type RegionWatchProviders struct {
	Link     string          `json:"link"`
	Flatrate []WatchProvider `json:"flatrate"`
	Rent     []WatchProvider `json:"rent"`
	Buy      []WatchProvider `json:"buy"`
}

// WatchProvider is a single streaming provider entry.
type WatchProvider struct {
	ProviderID      int     `json:"provider_id"`
	ProviderName    string  `json:"provider_name"`
	LogoPath        *string `json:"logo_path"`
	DisplayPriority int     `json:"display_priority"`
}

// ErrorResponse is an error from the TMDB API.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}
