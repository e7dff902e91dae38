package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/ports"
	"github.com/samirrijal/osmmap/internal/pkg/geospatial"
	"github.com/samirrijal/osmmap/internal/pkg/metrics"
	"github.com/samirrijal/osmmap/internal/pkg/telemetry"
)

// MapService owns the shared map state. Every mutation, its sequence number
// and its broadcast happen under one lock, so all viewers see one total order.
type MapService struct {
	hub       ports.Broadcaster
	publisher ports.EventPublisher
	cache     ports.CacheService

	mu          sync.Mutex
	seq         uint64
	view        domain.MapView
	commandedAt time.Time
	viewport    *domain.MapView
	viewportAt  time.Time
	title       domain.MapTitle
	markers     []domain.Marker
	lines       []domain.Line
	polygons    []domain.Polygon

	dirty chan struct{}
	now   func() time.Time
	newID func() string
}

// NewMapService creates a MapService. publisher and cache may be nil.
func NewMapService(hub ports.Broadcaster, publisher ports.EventPublisher, cache ports.CacheService) *MapService {
	return &MapService{
		hub:       hub,
		publisher: publisher,
		cache:     cache,
		view:      domain.DefaultView(),
		dirty:     make(chan struct{}, 1),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Window assumed when a bounds-only view needs a zoom. Viewers fit the
// bounds to their real window; the estimate is what get_map_view and late
// snapshots report.
const (
	fitWindowWidth  = 1024
	fitWindowHeight = 768
)

// GetView returns whichever is newer: the last commanded view or the
// viewport a browser last reported.
func (s *MapService) GetView() domain.MapView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentViewLocked()
}

func (s *MapService) currentViewLocked() domain.MapView {
	if s.viewport != nil && s.viewportAt.After(s.commandedAt) {
		return cloneView(*s.viewport)
	}
	return cloneView(s.view)
}

// SetView moves the map from where it currently is. Fields the caller left
// out keep the current value, except that bounds are dropped unless given:
// a new centre or zoom no longer shows the old box. Bounds without a zoom
// are fitted.
func (s *MapService) SetView(ctx context.Context, upd domain.ViewUpdate) (domain.MapView, error) {
	if upd.Center == nil && upd.Bounds == nil && upd.Zoom == nil {
		return domain.MapView{}, domain.Invalid("view", "at least one of center, bounds or zoom is required")
	}
	if upd.Center != nil {
		if err := upd.Center.Validate("center"); err != nil {
			return domain.MapView{}, err
		}
	}
	if upd.Bounds != nil {
		if err := upd.Bounds.Validate("bounds"); err != nil {
			return domain.MapView{}, err
		}
	}
	if upd.Zoom != nil {
		if err := validateZoom(*upd.Zoom); err != nil {
			return domain.MapView{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentViewLocked()
	next := domain.MapView{Center: cur.Center, Zoom: cur.Zoom}
	if upd.Bounds != nil {
		b := *upd.Bounds
		next.Bounds = &b
		next.Center = b.Center()
		if upd.Zoom == nil {
			next.Zoom = geospatial.FitZoom(b, fitWindowWidth, fitWindowHeight, domain.MinZoom, domain.MaxZoom)
			next.FitBounds = true
		}
	}
	if upd.Center != nil {
		next.Center = *upd.Center
	}
	if upd.Zoom != nil {
		next.Zoom = *upd.Zoom
	}

	s.view = next
	s.commandedAt = s.now()
	s.commit(ctx, domain.KindView, cloneView(next))
	return cloneView(next), nil
}

// SetTitle replaces the title text and style.
func (s *MapService) SetTitle(ctx context.Context, text string, style domain.TitleStyle) domain.MapTitle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.title = domain.MapTitle{Text: text, Style: style}
	s.commit(ctx, domain.KindTitle, s.title)
	return s.title
}

// AddMarker appends a marker and returns it with its new id.
func (s *MapService) AddMarker(ctx context.Context, in domain.MarkerInput) (domain.Marker, error) {
	if err := in.Position.Validate("coordinates"); err != nil {
		return domain.Marker{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := domain.Marker{
		ID:        s.newID(),
		Position:  in.Position,
		Label:     in.Label,
		Tooltip:   in.Tooltip,
		OpenPopup: in.OpenPopup,
		CreatedAt: s.now(),
	}
	s.markers = append(s.markers, m)
	s.commit(ctx, domain.KindMarker, m)
	return m, nil
}

// AddLine appends a polyline of at least two points.
func (s *MapService) AddLine(ctx context.Context, points []domain.GeoPoint, style domain.LineStyle) (domain.Line, error) {
	if err := domain.ValidatePath("points", points, 2); err != nil {
		return domain.Line{}, err
	}
	if err := validateOpacity("opacity", style.Opacity); err != nil {
		return domain.Line{}, err
	}
	if err := validateWeight(style.Weight); err != nil {
		return domain.Line{}, err
	}

	pts := append([]domain.GeoPoint(nil), points...)

	s.mu.Lock()
	defer s.mu.Unlock()

	l := domain.Line{
		ID:           s.newID(),
		Points:       pts,
		Style:        style,
		LengthMeters: geospatial.PathLength(pts),
		Extent:       geospatial.Extent(pts),
		CreatedAt:    s.now(),
	}
	s.lines = append(s.lines, l)
	s.commit(ctx, domain.KindLine, l)
	return l, nil
}

// AddPolygon appends a polygon. The ring is closed if the caller left it open.
func (s *MapService) AddPolygon(ctx context.Context, points []domain.GeoPoint, style domain.PolygonStyle) (domain.Polygon, error) {
	ring := append([]domain.GeoPoint(nil), points...)
	if err := domain.ValidatePath("points", ring, 3); err != nil {
		return domain.Polygon{}, err
	}
	closed := ring[0] == ring[len(ring)-1]
	distinct := make(map[domain.GeoPoint]struct{}, len(ring))
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return domain.Polygon{}, domain.Invalid("points", "need at least 3 distinct points, got %d", len(distinct))
	}
	if err := validateOpacity("fill_opacity", style.FillOpacity); err != nil {
		return domain.Polygon{}, err
	}
	if err := validateWeight(style.Weight); err != nil {
		return domain.Polygon{}, err
	}
	if !closed {
		ring = append(ring, ring[0])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := domain.Polygon{
		ID:              s.newID(),
		Points:          ring,
		Style:           style,
		PerimeterMeters: geospatial.PathLength(ring),
		Extent:          geospatial.Extent(ring),
		CreatedAt:       s.now(),
	}
	s.polygons = append(s.polygons, p)
	s.commit(ctx, domain.KindPolygon, p)
	return p, nil
}

// ReportViewport records what a browser is currently showing. It is not
// broadcast: viewers would otherwise keep moving each other's maps.
func (s *MapService) ReportViewport(view domain.MapView) error {
	if err := view.Center.Validate("center"); err != nil {
		return err
	}
	if err := validateZoom(view.Zoom); err != nil {
		return err
	}
	if view.Bounds != nil {
		if err := view.Bounds.Validate("bounds"); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := cloneView(view)
	v.FitBounds = false
	s.viewport = &v
	s.viewportAt = s.now()
	return nil
}

// Snapshot returns a copy of the full state.
func (s *MapService) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Connect registers a viewer. Its first event is a snapshot taken under the
// same lock as every broadcast, so it neither misses nor repeats a delta.
func (s *MapService) Connect(info domain.ViewerInfo) ports.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	return s.hub.Register(info, domain.Event{
		Type: domain.EventSnapshot,
		Seq:  s.seq,
		Time: s.now(),
		Data: snap,
	})
}

// Disconnect drops a viewer. cause is nil for a clean close.
func (s *MapService) Disconnect(id uint64, cause error) {
	s.hub.Unregister(id, cause)
}

// Viewers lists the connected viewers.
func (s *MapService) Viewers() []domain.ViewerInfo {
	return s.hub.Viewers()
}

// MarkersNear returns markers within radiusMeters of center, nearest first.
func (s *MapService) MarkersNear(center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Marker, error) {
	if err := center.Validate("center"); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		return nil, domain.Invalid("radius", "must be positive")
	}
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)
	box := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}

	s.mu.Lock()
	type hit struct {
		m domain.Marker
		d float64
	}
	var hits []hit
	for _, m := range s.markers {
		if !geospatial.Contains(box, m.Position) {
			continue
		}
		if d := geospatial.Distance(center, m.Position); d <= radiusMeters {
			hits = append(hits, hit{m, d})
		}
	}
	s.mu.Unlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Marker, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out, nil
}

// commit stamps and broadcasts a delta. Callers hold s.mu.
func (s *MapService) commit(ctx context.Context, kind domain.DeltaKind, data any) {
	s.seq++
	ctx, span := telemetry.Tracer().Start(ctx, "map.commit")
	defer span.End()
	span.SetAttributes(telemetry.AttrEventSeq.Int64(int64(s.seq)), telemetry.AttrEventKind.String(string(kind)))

	ev := domain.Event{
		Type: domain.EventDelta,
		Seq:  s.seq,
		Kind: kind,
		Time: s.now(),
		Data: data,
	}
	s.hub.Broadcast(ev)

	// Core NATS publishes are buffered, so this does not block on the network.
	if s.publisher != nil {
		if err := s.publisher.PublishMapEvent(ctx, &ev); err != nil {
			slog.Warn("mirror map event failed", "seq", ev.Seq, "kind", kind, "error", err)
		}
	}

	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *MapService) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Seq:      s.seq,
		View:     cloneView(s.view),
		Title:    s.title,
		Markers:  append([]domain.Marker{}, s.markers...),
		Lines:    append([]domain.Line{}, s.lines...),
		Polygons: append([]domain.Polygon{}, s.polygons...),
	}
}

// Restore loads a saved snapshot into a fresh service. It reports whether
// anything was loaded. A snapshot that cannot be decoded is deleted.
func (s *MapService) Restore(ctx context.Context, key string) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, ports.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load map state: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Unreadable state would fail every later start too.
		if derr := s.cache.Delete(ctx, key); derr != nil {
			slog.Warn("drop unreadable map state failed", "key", key, "error", derr)
		}
		return false, fmt.Errorf("decode map state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != 0 {
		return false, fmt.Errorf("restore into a map that already has %d changes", s.seq)
	}
	s.seq = snap.Seq
	s.view = snap.View
	s.title = snap.Title
	s.markers = snap.Markers
	s.lines = snap.Lines
	s.polygons = snap.Polygons
	return true, nil
}

// RunPersistence writes the latest snapshot to the cache after changes,
// coalescing bursts, until ctx is cancelled. It is a no-op without a cache.
func (s *MapService) RunPersistence(ctx context.Context, key string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			select {
			case <-s.dirty:
				flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				s.persist(flushCtx, key, ttl)
				cancel()
			default:
			}
			return
		case <-s.dirty:
			s.persist(ctx, key, ttl)
		}
	}
}

func (s *MapService) persist(ctx context.Context, key string, ttl time.Duration) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		slog.Error("encode map state", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, int(ttl.Seconds())); err != nil {
		metrics.StateSaves.WithLabelValues("error").Inc()
		slog.Warn("save map state failed", "key", key, "error", err)
		return
	}
	metrics.StateSaves.WithLabelValues("ok").Inc()
}

func cloneView(v domain.MapView) domain.MapView {
	if v.Bounds != nil {
		b := *v.Bounds
		v.Bounds = &b
	}
	return v
}

func validateZoom(z int) error {
	if z < domain.MinZoom || z > domain.MaxZoom {
		return domain.Invalid("zoom", "%d out of range [%d, %d]", z, domain.MinZoom, domain.MaxZoom)
	}
	return nil
}

func validateOpacity(field string, v *float64) error {
	if v != nil && !(*v >= 0 && *v <= 1) {
		return domain.Invalid(field, "%v out of range [0, 1]", *v)
	}
	return nil
}

func validateWeight(w *int) error {
	if w != nil && *w < 0 {
		return domain.Invalid("weight", "must not be negative, got %d", *w)
	}
	return nil
}
