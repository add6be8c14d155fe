package model

// Artist is one roster entry. Records carry a generated id so edits and
// deletes address a stable identity rather than an array position.
type Artist struct {
	ID         string `json:"id"`
	Name       string `json:"artist_name"`
	Instagram  string `json:"artist_instagram_username"`
	SoundCloud string `json:"artist_soundcloud"`
	Spotify    string `json:"artist_spotify"`
	Beatport   string `json:"artist_beatport"`
}

// ArtistFile is the JSON document stored at /artists/artists.json.
type ArtistFile struct {
	Artists []Artist `json:"artists"`
}
