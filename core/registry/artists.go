package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"demodesk/model"
	"demodesk/storage"

	"github.com/google/uuid"
)

// ArtistsPath is the roster document in the file store.
const ArtistsPath = "/artists/artists.json"

// ArtistRegistry is the artist roster: one JSON array in one file,
// records addressed by generated id.
type ArtistRegistry struct {
	store storage.FileStore
	locks *pathLocks
	newID func() string
}

// NewArtistRegistry wires the roster over the file store.
func NewArtistRegistry(store storage.FileStore) *ArtistRegistry {
	return &ArtistRegistry{
		store: store,
		locks: newPathLocks(),
		newID: uuid.NewString,
	}
}

// List returns the roster. A missing document lists as empty.
func (r *ArtistRegistry) List(ctx context.Context) ([]model.Artist, error) {
	return r.load(ctx)
}

// Create validates, trims and appends a new artist, assigning its id.
func (r *ArtistRegistry) Create(ctx context.Context, in model.Artist) (model.Artist, error) {
	trimArtist(&in)
	if err := validateArtist(in); err != nil {
		return model.Artist{}, err
	}
	in.ID = r.newID()

	unlock := r.locks.lock(ArtistsPath)
	defer unlock()

	artists, err := r.load(ctx)
	if err != nil {
		return model.Artist{}, err
	}
	artists = append(artists, in)
	if err := r.save(ctx, artists); err != nil {
		return model.Artist{}, err
	}
	return in, nil
}

// Update validates and replaces the artist with the given id.
func (r *ArtistRegistry) Update(ctx context.Context, id string, in model.Artist) (model.Artist, error) {
	trimArtist(&in)
	if err := validateArtist(in); err != nil {
		return model.Artist{}, err
	}

	unlock := r.locks.lock(ArtistsPath)
	defer unlock()

	artists, err := r.load(ctx)
	if err != nil {
		return model.Artist{}, err
	}
	for i := range artists {
		if artists[i].ID == id {
			in.ID = id
			artists[i] = in
			if err := r.save(ctx, artists); err != nil {
				return model.Artist{}, err
			}
			return in, nil
		}
	}
	return model.Artist{}, fmt.Errorf("%w: artist %s", ErrRecordNotFound, id)
}

// Delete removes the artist with the given id, compacting the array.
func (r *ArtistRegistry) Delete(ctx context.Context, id string) error {
	unlock := r.locks.lock(ArtistsPath)
	defer unlock()

	artists, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := artists[:0]
	for _, a := range artists {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(artists) {
		return fmt.Errorf("%w: artist %s", ErrRecordNotFound, id)
	}
	return r.save(ctx, kept)
}

func (r *ArtistRegistry) load(ctx context.Context) ([]model.Artist, error) {
	raw, err := r.store.Download(ctx, ArtistsPath)
	if errors.Is(err, storage.ErrNotFound) {
		return []model.Artist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", ArtistsPath, err)
	}
	var file model.ArtistFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", ArtistsPath, err)
	}
	if file.Artists == nil {
		file.Artists = []model.Artist{}
	}
	return file.Artists, nil
}

func (r *ArtistRegistry) save(ctx context.Context, artists []model.Artist) error {
	raw, err := json.Marshal(model.ArtistFile{Artists: artists})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ArtistsPath, err)
	}
	if err := r.store.Upload(ctx, ArtistsPath, raw); err != nil {
		return fmt.Errorf("failed to upload %s: %w", ArtistsPath, err)
	}
	return nil
}

func trimArtist(a *model.Artist) {
	a.Name = strings.TrimSpace(a.Name)
	a.Instagram = strings.TrimSpace(a.Instagram)
	a.SoundCloud = strings.TrimSpace(a.SoundCloud)
	a.Spotify = strings.TrimSpace(a.Spotify)
	a.Beatport = strings.TrimSpace(a.Beatport)
}

// validateArtist applies the same rules to create and update.
func validateArtist(a model.Artist) error {
	if err := requireNonBlank("artist_name", a.Name); err != nil {
		return err
	}
	if err := requireNonBlank("artist_instagram_username", a.Instagram); err != nil {
		return err
	}
	if err := requireHost("artist_soundcloud", a.SoundCloud, "soundcloud.com"); err != nil {
		return err
	}
	if err := requireHost("artist_spotify", a.Spotify, "open.spotify.com"); err != nil {
		return err
	}
	if err := requireHost("artist_beatport", a.Beatport, "beatport.com"); err != nil {
		return err
	}
	return nil
}
