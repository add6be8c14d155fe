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

// EventsPath is the event listings document in the file store.
const EventsPath = "/events/events.json"

// EventRegistry is the event listings registry, same single-document
// shape as the artist roster.
type EventRegistry struct {
	store storage.FileStore
	locks *pathLocks
	newID func() string
}

// NewEventRegistry wires the event registry over the file store.
func NewEventRegistry(store storage.FileStore) *EventRegistry {
	return &EventRegistry{
		store: store,
		locks: newPathLocks(),
		newID: uuid.NewString,
	}
}

// List returns all events. A missing document lists as empty.
func (r *EventRegistry) List(ctx context.Context) ([]model.Event, error) {
	return r.load(ctx)
}

// Create validates, trims and appends a new event, assigning its id.
func (r *EventRegistry) Create(ctx context.Context, in model.Event) (model.Event, error) {
	trimEvent(&in)
	if err := validateEvent(in); err != nil {
		return model.Event{}, err
	}
	in.ID = r.newID()

	unlock := r.locks.lock(EventsPath)
	defer unlock()

	events, err := r.load(ctx)
	if err != nil {
		return model.Event{}, err
	}
	events = append(events, in)
	if err := r.save(ctx, events); err != nil {
		return model.Event{}, err
	}
	return in, nil
}

// Update validates and replaces the event with the given id.
func (r *EventRegistry) Update(ctx context.Context, id string, in model.Event) (model.Event, error) {
	trimEvent(&in)
	if err := validateEvent(in); err != nil {
		return model.Event{}, err
	}

	unlock := r.locks.lock(EventsPath)
	defer unlock()

	events, err := r.load(ctx)
	if err != nil {
		return model.Event{}, err
	}
	for i := range events {
		if events[i].ID == id {
			in.ID = id
			events[i] = in
			if err := r.save(ctx, events); err != nil {
				return model.Event{}, err
			}
			return in, nil
		}
	}
	return model.Event{}, fmt.Errorf("%w: event %s", ErrRecordNotFound, id)
}

// Delete removes the event with the given id, compacting the array.
func (r *EventRegistry) Delete(ctx context.Context, id string) error {
	unlock := r.locks.lock(EventsPath)
	defer unlock()

	events, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := events[:0]
	for _, e := range events {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(events) {
		return fmt.Errorf("%w: event %s", ErrRecordNotFound, id)
	}
	return r.save(ctx, kept)
}

func (r *EventRegistry) load(ctx context.Context) ([]model.Event, error) {
	raw, err := r.store.Download(ctx, EventsPath)
	if errors.Is(err, storage.ErrNotFound) {
		return []model.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", EventsPath, err)
	}
	var file model.EventFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", EventsPath, err)
	}
	if file.Events == nil {
		file.Events = []model.Event{}
	}
	return file.Events, nil
}

func (r *EventRegistry) save(ctx context.Context, events []model.Event) error {
	raw, err := json.Marshal(model.EventFile{Events: events})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", EventsPath, err)
	}
	if err := r.store.Upload(ctx, EventsPath, raw); err != nil {
		return fmt.Errorf("failed to upload %s: %w", EventsPath, err)
	}
	return nil
}

func trimEvent(e *model.Event) {
	e.Title = strings.TrimSpace(e.Title)
	e.Location = strings.TrimSpace(e.Location)
	e.Date = strings.TrimSpace(e.Date)
	e.Times = strings.TrimSpace(e.Times)
	e.Artists = strings.TrimSpace(e.Artists)
	e.URL = strings.TrimSpace(e.URL)
	e.Instagram = strings.TrimSpace(e.Instagram)
}

// validateEvent applies the same rules to create and update. URL and
// Instagram are optional but must be well-formed when present.
func validateEvent(e model.Event) error {
	if err := requireNonBlank("event_title", e.Title); err != nil {
		return err
	}
	if err := requireNonBlank("event_location", e.Location); err != nil {
		return err
	}
	if err := requireDate("event_date", e.Date); err != nil {
		return err
	}
	if err := requireNonBlank("event_times", e.Times); err != nil {
		return err
	}
	if err := requireNonBlank("event_artists", e.Artists); err != nil {
		return err
	}
	if e.URL != "" {
		if err := requireURL("event_url", e.URL); err != nil {
			return err
		}
	}
	if e.Instagram != "" {
		if err := requireHost("event_instagram", e.Instagram, "instagram.com"); err != nil {
			return err
		}
	}
	return nil
}
