package omdb

// Response is the raw OMDb response for a title lookup.
type Response struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Rated      string   `json:"Rated"`
	Released   string   `json:"Released"`
	Runtime    string   `json:"Runtime"`
	Genre      string   `json:"Genre"`
	Plot       string   `json:"Plot"`
	Awards     string   `json:"Awards"`
	Metascore  string   `json:"Metascore"`
	ImdbRating string   `json:"imdbRating"`
	ImdbVotes  string   `json:"imdbVotes"`
	ImdbID     string   `json:"imdbID"`
	Ratings    []Rating `json:"Ratings"`
	Response   string   `json:"Response"`
	Error      string   `json:"Error"`
}

// Rating is a single rating entry from an external source.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// TitleRatings is the normalized ratings result returned by the client.
// Pointer fields are nil when the source reports "N/A".
type TitleRatings struct {
	ImdbID         string   `json:"imdbId"`
	ImdbRating     *float64 `json:"imdbRating,omitempty"`
	ImdbVotes      int      `json:"imdbVotes,omitempty"`
	Metacritic     int      `json:"metacritic,omitempty"`
	RottenTomatoes int      `json:"rottenTomatoes,omitempty"`
	Rated          string   `json:"rated,omitempty"`
}
