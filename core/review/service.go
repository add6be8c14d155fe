package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"demodesk/cache"
	"demodesk/logger"
	"demodesk/model"
	"demodesk/storage"
)

// ErrDemoNotFound is returned when a demo cannot be located in any
// expected source folder.
var ErrDemoNotFound = errors.New("review: demo not found")

// ErrPartialMove is returned when the audio file moved but its sidecar
// did not (or vice versa). The pair is left detectably inconsistent and
// surfaced by the next listing.
var ErrPartialMove = errors.New("review: demo pair partially moved")

// Notifier sends the submitter a decision email.
type Notifier interface {
	SendDecision(ctx context.Context, meta model.DemoMetadata, liked bool) error
}

// Broadcaster pushes demo status changes to connected dashboard sessions.
type Broadcaster interface {
	BroadcastStatusChange(demoID, from, to string)
}

// Service implements the demo listing and review workflow.
type Service struct {
	store  storage.FileStore
	cache  *cache.DemoCache
	mailer Notifier    // nil disables notifications
	events Broadcaster // nil disables live updates
	now    func() time.Time
}

// NewService wires the review service.
func NewService(store storage.FileStore, demoCache *cache.DemoCache, mailer Notifier, events Broadcaster) *Service {
	return &Service{
		store:  store,
		cache:  demoCache,
		mailer: mailer,
		events: events,
		now:    time.Now,
	}
}

// ListResult is the combined demo listing.
type ListResult struct {
	Demos  []model.Demo `json:"demos"`
	Cached bool         `json:"cached"`
	// Inconsistencies lists demo pairs with a missing audio file or
	// missing sidecar, surfaced instead of silently skipped.
	Inconsistencies []string `json:"inconsistencies,omitempty"`
}

type folderListing struct {
	status string
	files  []storage.FileInfo
	err    error
}

// listFolders lists the four status folders concurrently.
func (s *Service) listFolders(ctx context.Context) (map[string][]storage.FileInfo, map[string]string, error) {
	listings := make([]folderListing, len(model.Statuses))
	var wg sync.WaitGroup
	for i, status := range model.Statuses {
		wg.Add(1)
		go func(i int, status string) {
			defer wg.Done()
			files, err := s.store.List(ctx, StatusFolder(status))
			listings[i] = folderListing{status: status, files: files, err: err}
		}(i, status)
	}
	wg.Wait()

	byStatus := make(map[string][]storage.FileInfo, len(model.Statuses))
	digests := make(map[string]string, len(model.Statuses))
	for _, l := range listings {
		if l.err != nil {
			return nil, nil, fmt.Errorf("failed to list %s: %w", StatusFolder(l.status), l.err)
		}
		byStatus[l.status] = l.files
		digests[l.status] = FolderDigest(l.files)
	}
	return byStatus, digests, nil
}

// List returns all demos, newest submission first. The cached snapshot is
// reused when it is fresh and every folder digest still matches;
// otherwise the folders are refetched in full.
func (s *Service) List(ctx context.Context) (*ListResult, error) {
	byStatus, digests, err := s.listFolders(ctx)
	if err != nil {
		return nil, err
	}

	inconsistencies := detectOrphans(byStatus)

	if snap, err := s.cache.Get(ctx); err == nil {
		if snap.Fresh(s.now(), s.cache.TTL()) && snap.Matches(digests) {
			return &ListResult{Demos: snap.Demos, Cached: true, Inconsistencies: inconsistencies}, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("[Review] demo cache read failed", logger.ErrorField(err))
	}

	demos := s.fetchDemos(ctx, byStatus)
	sort.Slice(demos, func(i, j int) bool {
		if demos[i].SubmittedAt != demos[j].SubmittedAt {
			return demos[i].SubmittedAt > demos[j].SubmittedAt
		}
		return demos[i].ID > demos[j].ID
	})

	snap := &cache.Snapshot{Demos: demos, Digests: digests, FetchedAt: s.now()}
	if err := s.cache.Put(ctx, snap); err != nil {
		logger.Warn("[Review] failed to cache demo snapshot", logger.ErrorField(err))
	}

	return &ListResult{Demos: demos, Cached: false, Inconsistencies: inconsistencies}, nil
}

// detectOrphans finds audio files lacking a sidecar and sidecars lacking
// audio, per folder.
func detectOrphans(byStatus map[string][]storage.FileInfo) []string {
	var problems []string
	for _, status := range model.Statuses {
		names := make(map[string]bool)
		for _, f := range byStatus[status] {
			names[f.Name] = true
		}
		for _, f := range byStatus[status] {
			if IsSidecar(f.Name) {
				audio := strings.TrimSuffix(f.Name, sidecarSuffix)
				if !names[audio] {
					problems = append(problems, fmt.Sprintf("sidecar without audio: %s", f.Path))
				}
			} else if IsAudio(f.Name) {
				if !names[f.Name+sidecarSuffix] {
					problems = append(problems, fmt.Sprintf("audio without sidecar: %s", f.Path))
				}
			}
		}
	}
	sort.Strings(problems)
	return problems
}

// fetchDemos downloads sidecars and builds play links for every complete
// pair. Downloads for independent demos run concurrently; one failure
// does not cancel the others.
func (s *Service) fetchDemos(ctx context.Context, byStatus map[string][]storage.FileInfo) []model.Demo {
	type slot struct {
		demo model.Demo
		ok   bool
	}

	var slots []*slot
	var wg sync.WaitGroup
	for _, status := range model.Statuses {
		names := make(map[string]bool)
		for _, f := range byStatus[status] {
			names[f.Name] = true
		}
		for _, f := range byStatus[status] {
			if !IsAudio(f.Name) || IsSidecar(f.Name) || !names[f.Name+sidecarSuffix] {
				continue
			}
			sl := &slot{}
			slots = append(slots, sl)
			wg.Add(1)
			go func(status string, audio storage.FileInfo, sl *slot) {
				defer wg.Done()
				demo, err := s.buildDemo(ctx, status, audio)
				if err != nil {
					logger.Warn("[Review] failed to load demo",
						logger.String("path", audio.Path), logger.ErrorField(err))
					return
				}
				sl.demo = demo
				sl.ok = true
			}(status, f, sl)
		}
	}
	wg.Wait()

	demos := make([]model.Demo, 0, len(slots))
	for _, sl := range slots {
		if sl.ok {
			demos = append(demos, sl.demo)
		}
	}
	return demos
}

// buildDemo downloads one sidecar and resolves a playback link for the
// audio file: reuse or create a shared link, fall back to a temporary
// link, and tolerate having no link at all.
func (s *Service) buildDemo(ctx context.Context, status string, audio storage.FileInfo) (model.Demo, error) {
	raw, err := s.store.Download(ctx, SidecarPath(audio.Path))
	if err != nil {
		return model.Demo{}, fmt.Errorf("failed to download sidecar: %w", err)
	}
	var meta model.DemoMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return model.Demo{}, fmt.Errorf("malformed sidecar %s: %w", SidecarPath(audio.Path), err)
	}

	link, err := s.store.ShareLink(ctx, audio.Path)
	if err != nil {
		logger.Debug("[Review] shared link unavailable, trying temporary link",
			logger.String("path", audio.Path), logger.ErrorField(err))
		link, err = s.store.TempLink(ctx, audio.Path)
		if err != nil {
			logger.Warn("[Review] no playback link available",
				logger.String("path", audio.Path), logger.ErrorField(err))
			link = ""
		}
	}

	return model.Demo{
		ID:             meta.ID,
		Title:          meta.Title,
		Artist:         meta.Artist,
		ListenLink:     meta.ListenLink,
		SubmittedAt:    meta.SubmittedAt,
		Status:         status,
		SubmitterEmail: meta.SubmitterEmail,
		StreamURL:      link,
		AudioPath:      audio.Path,
	}, nil
}

// EmailStatus reports the notification outcome embedded in a transition
// response. A failed email never fails the action.
type EmailStatus struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// TransitionResult describes an applied workflow action.
type TransitionResult struct {
	DemoID      string       `json:"demo_id"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	EmailStatus *EmailStatus `json:"email_status,omitempty"`
}

// Transition applies one workflow action: resolve the move through the
// transition table, relocate the audio+sidecar pair, patch the cached
// snapshot in place, and send the decision email when required.
func (s *Service) Transition(ctx context.Context, demoID string, role Role, action Action) (*TransitionResult, error) {
	current, err := s.currentStatus(ctx, demoID, role, action)
	if err != nil {
		return nil, err
	}

	tr, err := Resolve(role, action, current)
	if err != nil {
		return nil, err
	}

	audioPath, err := s.locateAudio(ctx, demoID, tr.From)
	if err != nil {
		return nil, err
	}

	destAudio := StatusFolder(tr.To) + "/" + baseName(audioPath)
	if err := s.store.Move(ctx, audioPath, destAudio); err != nil {
		return nil, fmt.Errorf("failed to move audio %s: %w", audioPath, err)
	}
	if err := s.store.Move(ctx, SidecarPath(audioPath), SidecarPath(destAudio)); err != nil {
		logger.Error("[Review] sidecar move failed after audio move",
			logger.String("demo", demoID),
			logger.String("audio", destAudio),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: audio moved to %s but sidecar move failed: %v", ErrPartialMove, tr.To, err)
	}

	s.patchCache(ctx, demoID, tr)

	result := &TransitionResult{DemoID: demoID, From: tr.From, To: tr.To}
	if tr.Notify {
		result.EmailStatus = s.notify(ctx, destAudio, tr)
	}

	if s.events != nil {
		s.events.BroadcastStatusChange(demoID, tr.From, tr.To)
	}

	logger.Info("[Review] demo transitioned",
		logger.String("demo", demoID),
		logger.String("from", tr.From),
		logger.String("to", tr.To),
		logger.String("role", string(role)),
		logger.String("action", string(action)))
	return result, nil
}

// currentStatus reads the demo's status from the cached snapshot, falling
// back to probing each candidate source folder when the cache cannot say.
func (s *Service) currentStatus(ctx context.Context, demoID string, role Role, action Action) (string, error) {
	candidates := CandidateSources(role, action)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: role=%s action=%s", ErrInvalidTransition, role, action)
	}

	if snap, err := s.cache.Get(ctx); err == nil {
		for _, demo := range snap.Demos {
			if demo.ID == demoID {
				return demo.Status, nil
			}
		}
	}

	for _, status := range candidates {
		if _, err := s.locateAudio(ctx, demoID, status); err == nil {
			return status, nil
		} else if !errors.Is(err, ErrDemoNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrDemoNotFound, demoID)
}

// locateAudio finds the demo's audio file in a status folder by demo-id
// substring match on the filename.
func (s *Service) locateAudio(ctx context.Context, demoID, status string) (string, error) {
	files, err := s.store.List(ctx, StatusFolder(status))
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", StatusFolder(status), err)
	}
	for _, f := range files {
		if IsAudio(f.Name) && !IsSidecar(f.Name) && strings.Contains(f.Name, demoID) {
			return f.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s not in %s", ErrDemoNotFound, demoID, status)
}

// patchCache updates the moved demo's status in the snapshot and
// refreshes the digests of the two affected folders. A folder that fails
// to re-list keeps its stale digest.
func (s *Service) patchCache(ctx context.Context, demoID string, tr Transition) {
	digests := make(map[string]string, 2)
	for _, status := range []string{tr.From, tr.To} {
		files, err := s.store.List(ctx, StatusFolder(status))
		if err != nil {
			logger.Warn("[Review] digest refresh failed, keeping stale digest",
				logger.String("folder", status), logger.ErrorField(err))
			continue
		}
		digests[status] = FolderDigest(files)
	}

	if err := s.cache.PatchStatus(ctx, demoID, tr.To, digests); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			logger.Debug("[Review] no snapshot to patch", logger.String("demo", demoID))
			return
		}
		logger.Warn("[Review] failed to patch cached snapshot",
			logger.String("demo", demoID), logger.ErrorField(err))
	}
}

// notify re-downloads the moved sidecar and sends the decision email.
func (s *Service) notify(ctx context.Context, destAudio string, tr Transition) *EmailStatus {
	if s.mailer == nil {
		return &EmailStatus{Sent: false, Error: "mailer not configured"}
	}

	raw, err := s.store.Download(ctx, SidecarPath(destAudio))
	if err != nil {
		return &EmailStatus{Sent: false, Error: fmt.Sprintf("failed to reload metadata: %v", err)}
	}
	var meta model.DemoMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return &EmailStatus{Sent: false, Error: fmt.Sprintf("malformed metadata: %v", err)}
	}
	if meta.SubmitterEmail == "" {
		return &EmailStatus{Sent: false, Error: "no submitter email on record"}
	}

	liked := tr.To == model.StatusAssistantLiked
	if err := s.mailer.SendDecision(ctx, meta, liked); err != nil {
		logger.Warn("[Review] decision email failed",
			logger.String("demo", meta.ID), logger.ErrorField(err))
		return &EmailStatus{Sent: false, Error: err.Error()}
	}
	return &EmailStatus{Sent: true}
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
