package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"demodesk/model"
	"demodesk/storage"
)

func validArtist() model.Artist {
	return model.Artist{
		Name:       "Nocturne",
		Instagram:  "nocturne.music",
		SoundCloud: "https://soundcloud.com/nocturne",
		Spotify:    "https://open.spotify.com/artist/abc123",
		Beatport:   "https://www.beatport.com/artist/nocturne/42",
	}
}

func validEvent() model.Event {
	return model.Event{
		Title:    "Warehouse Night",
		Location: "Amsterdam",
		Date:     "2024-09-14",
		Times:    "23:00-06:00",
		Artists:  "Nocturne, Veiled",
		URL:      "https://tickets.example.com/warehouse-night",
	}
}

func TestArtistCreateOnEmptyRoster(t *testing.T) {
	store := storage.NewMemStore()
	reg := NewArtistRegistry(store)
	ctx := context.Background()

	in := validArtist()
	in.Name = "  Nocturne  "
	in.Instagram = " nocturne.music "

	created, err := reg.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created artist must carry an id")
	}
	if created.Name != "Nocturne" || created.Instagram != "nocturne.music" {
		t.Errorf("fields not trimmed: %+v", created)
	}

	// The stored document is the wrapper object holding one record.
	raw, err := store.Download(ctx, ArtistsPath)
	if err != nil {
		t.Fatalf("download roster: %v", err)
	}
	var file model.ArtistFile
	if err := json.Unmarshal(raw, &file); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(file.Artists) != 1 {
		t.Fatalf("roster has %d artists, want 1", len(file.Artists))
	}
	if file.Artists[0] != created {
		t.Errorf("stored record %+v differs from returned %+v", file.Artists[0], created)
	}
}

func TestArtistListMissingDocument(t *testing.T) {
	reg := NewArtistRegistry(storage.NewMemStore())
	artists, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(artists) != 0 {
		t.Errorf("missing document should list empty, got %+v", artists)
	}
}

func TestArtistUpdateByID(t *testing.T) {
	reg := NewArtistRegistry(storage.NewMemStore())
	ctx := context.Background()

	first, err := reg.Create(ctx, validArtist())
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second := validArtist()
	second.Name = "Veiled"
	if _, err := reg.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	patch := validArtist()
	patch.Name = "Nocturne Renamed"
	patch.ID = "should-be-ignored"
	updated, err := reg.Update(ctx, first.ID, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != first.ID {
		t.Errorf("update must preserve the record id, got %s", updated.ID)
	}
	if updated.Name != "Nocturne Renamed" {
		t.Errorf("name = %s, want Nocturne Renamed", updated.Name)
	}

	artists, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("update must not change roster size, got %d", len(artists))
	}

	if _, err := reg.Update(ctx, "missing-id", validArtist()); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("update of unknown id: want ErrRecordNotFound, got %v", err)
	}
}

func TestArtistDeleteCompacts(t *testing.T) {
	reg := NewArtistRegistry(storage.NewMemStore())
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"One", "Two", "Three"} {
		a := validArtist()
		a.Name = name
		created, err := reg.Create(ctx, a)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		ids = append(ids, created.ID)
	}

	if err := reg.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	artists, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("roster has %d artists after delete, want 2", len(artists))
	}
	if artists[0].Name != "One" || artists[1].Name != "Three" {
		t.Errorf("delete must keep order of survivors, got %+v", artists)
	}

	if err := reg.Delete(ctx, ids[1]); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("second delete: want ErrRecordNotFound, got %v", err)
	}
}

func TestArtistValidation(t *testing.T) {
	reg := NewArtistRegistry(storage.NewMemStore())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*model.Artist)
		field  string
	}{
		{"blank name", func(a *model.Artist) { a.Name = "   " }, "artist_name"},
		{"blank instagram", func(a *model.Artist) { a.Instagram = "" }, "artist_instagram_username"},
		{"wrong soundcloud host", func(a *model.Artist) { a.SoundCloud = "https://example.com/x" }, "artist_soundcloud"},
		{"not a url", func(a *model.Artist) { a.Spotify = "open.spotify.com/artist/abc" }, "artist_spotify"},
		{"wrong beatport host", func(a *model.Artist) { a.Beatport = "https://soundcloud.com/x" }, "artist_beatport"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validArtist()
			tc.mutate(&in)
			_, err := reg.Create(ctx, in)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %s, want %s", verr.Field, tc.field)
			}
		})
	}

	// Nothing invalid may touch the store.
	if _, err := reg.store.Download(ctx, ArtistsPath); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("failed creates must not write the roster, got %v", err)
	}
}

func TestArtistHostToleratesWWW(t *testing.T) {
	reg := NewArtistRegistry(storage.NewMemStore())
	in := validArtist()
	in.SoundCloud = "https://www.soundcloud.com/nocturne"
	if _, err := reg.Create(context.Background(), in); err != nil {
		t.Fatalf("www host should be accepted: %v", err)
	}
}

func TestEventCreateAndValidation(t *testing.T) {
	reg := NewEventRegistry(storage.NewMemStore())
	ctx := context.Background()

	created, err := reg.Create(ctx, validEvent())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created event must carry an id")
	}

	cases := []struct {
		name   string
		mutate func(*model.Event)
		field  string
	}{
		{"blank title", func(e *model.Event) { e.Title = "" }, "event_title"},
		{"blank location", func(e *model.Event) { e.Location = " " }, "event_location"},
		{"bad date", func(e *model.Event) { e.Date = "14-09-2024" }, "event_date"},
		{"blank times", func(e *model.Event) { e.Times = "" }, "event_times"},
		{"blank artists", func(e *model.Event) { e.Artists = "" }, "event_artists"},
		{"bad url", func(e *model.Event) { e.URL = "not a url" }, "event_url"},
		{"wrong instagram host", func(e *model.Event) { e.Instagram = "https://facebook.com/x" }, "event_instagram"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validEvent()
			tc.mutate(&in)
			_, err := reg.Create(ctx, in)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %s, want %s", verr.Field, tc.field)
			}
		})
	}
}

func TestEventOptionalFields(t *testing.T) {
	reg := NewEventRegistry(storage.NewMemStore())
	in := validEvent()
	in.URL = ""
	in.Instagram = ""
	if _, err := reg.Create(context.Background(), in); err != nil {
		t.Fatalf("url and instagram are optional: %v", err)
	}
}

func TestEventDeleteAndUpdate(t *testing.T) {
	reg := NewEventRegistry(storage.NewMemStore())
	ctx := context.Background()

	created, err := reg.Create(ctx, validEvent())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	patch := validEvent()
	patch.Title = "Warehouse Night II"
	updated, err := reg.Update(ctx, created.ID, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Title != "Warehouse Night II" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	if err := reg.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	events, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty listing after delete, got %+v", events)
	}
	if err := reg.Delete(ctx, created.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("second delete: want ErrRecordNotFound, got %v", err)
	}
}
