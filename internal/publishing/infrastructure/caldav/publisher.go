// Package caldav publishes computed plans to a CalDAV calendar
// (Nextcloud, Radicale, Fastmail, etc.) as all-day events.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/sony/gobreaker/v2"

	"github.com/fieldscale/takt/internal/publishing/application"
	"github.com/fieldscale/takt/pkg/observability"
)

const dateLayout = "20060102"

// BreakerConfig tunes the circuit breaker guarding the CalDAV server.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production circuit breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Config holds CalDAV connection settings.
type Config struct {
	Endpoint string
	Username string
	Password string
	// Calendar selects the target calendar by display name, or by path
	// when it starts with "/". Empty means the server's first calendar.
	Calendar      string
	DeleteMissing bool
	Breaker       BreakerConfig
}

// Publisher pushes plan events to a CalDAV calendar. Every HTTP round
// trip goes through a circuit breaker so a dead calendar server fails
// fast instead of stalling each event in turn.
type Publisher struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker[*http.Response]
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a CalDAV publisher.
func NewPublisher(cfg Config, metrics observability.Metrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}

	p := &Publisher{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        "caldav",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	p.breaker = gobreaker.NewCircuitBreaker[*http.Response](settings)

	return p
}

var _ application.Publisher = (*Publisher)(nil)

// Publish upserts one all-day event per plan event, keyed on the task
// instance id, then optionally deletes events this system created that
// are no longer in the plan.
func (p *Publisher) Publish(ctx context.Context, events []application.PlanEvent) (*application.PublishResult, error) {
	timer := observability.StartTimer("caldav_publish").WithMetrics(p.metrics)
	defer timer.Stop()

	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	calPath, err := p.findCalendarPath(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar: %w", err)
	}

	result := &application.PublishResult{}
	keepPaths := make(map[string]struct{}, len(events))

	for _, event := range events {
		eventPath := fmt.Sprintf("%s%s.ics", calPath, url.PathEscape(event.TaskID))
		keepPaths[eventPath] = struct{}{}

		cal := toICalendar(event)
		updated, err := p.upsertEvent(ctx, client, eventPath, cal)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				p.metrics.Counter(observability.MetricPublishBreakerOpen, 1)
			}
			p.logger.Warn("caldav publish failed", "event_path", eventPath, "error", err)
			result.Failed++
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Created++
		}
	}

	p.metrics.Counter(observability.MetricPublishUpserts, int64(result.Created+result.Updated))

	if p.cfg.DeleteMissing {
		deleted, err := p.deleteMissingEvents(ctx, client, calPath, keepPaths)
		if err != nil {
			p.logger.Warn("caldav delete missing failed", "error", err)
		} else {
			result.Deleted = deleted
		}
	}

	return result, nil
}

func (p *Publisher) getClient() (*caldav.Client, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &breakerTransport{
			breaker: p.breaker,
			base: &basicAuthTransport{
				username: p.cfg.Username,
				password: p.cfg.Password,
				base:     http.DefaultTransport,
			},
		},
	}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, p.cfg.Username, p.cfg.Password), p.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return client, nil
}

func (p *Publisher) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if strings.HasPrefix(p.cfg.Calendar, "/") {
		return ensureTrailingSlash(p.cfg.Calendar), nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}

	if p.cfg.Calendar == "" {
		return ensureTrailingSlash(cals[0].Path), nil
	}

	for _, cal := range cals {
		if strings.EqualFold(cal.Name, p.cfg.Calendar) {
			return ensureTrailingSlash(cal.Path), nil
		}
	}

	// Never publish onto an unrelated calendar when the configured one
	// is missing.
	return "", fmt.Errorf("calendar %q not found", p.cfg.Calendar)
}

func (p *Publisher) upsertEvent(ctx context.Context, client *caldav.Client, eventPath string, cal *ical.Calendar) (bool, error) {
	// Check if the event exists first
	_, err := client.GetCalendarObject(ctx, eventPath)
	if errors.Is(err, gobreaker.ErrOpenState) {
		return false, err
	}
	exists := err == nil

	// Put the event (creates or updates)
	_, err = client.PutCalendarObject(ctx, eventPath, cal)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (p *Publisher) deleteMissingEvents(ctx context.Context, client *caldav.Client, calPath string, keepPaths map[string]struct{}) (int, error) {
	// Query only events carrying the marker property
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{
				{
					Name:  "VEVENT",
					Props: []string{"UID", application.PropXTaktTaskID},
				},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{Name: "VEVENT"},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, obj := range objects {
		if !isTaktEvent(&obj) {
			continue
		}

		if _, ok := keepPaths[obj.Path]; ok {
			continue
		}

		if err := client.RemoveAll(ctx, obj.Path); err != nil {
			p.logger.Warn("failed to delete caldav event", "path", obj.Path, "error", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}

// isTaktEvent reports whether a calendar object carries the task id
// marker property, i.e. was created by this system.
func isTaktEvent(obj *caldav.CalendarObject) bool {
	if obj == nil || obj.Data == nil {
		return false
	}

	for _, child := range obj.Data.Children {
		if child.Name == ical.CompEvent {
			if props := child.Props[application.PropXTaktTaskID]; len(props) > 0 {
				if props[0].Value != "" {
					return true
				}
			}
		}
	}

	return false
}

// toICalendar converts a plan event to an all-day iCalendar event.
func toICalendar(event application.PlanEvent) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Takt//Schedule Publisher//EN")

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, event.TaskID)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	setDateProp(ev, ical.PropDateTimeStart, event.StartDate)
	setDateProp(ev, ical.PropDateTimeEnd, event.EndDate)
	ev.Props.SetText(ical.PropSummary, event.Summary())
	ev.Props.SetText(ical.PropCategories, event.Discipline)

	description := fmt.Sprintf("Crews: %d", event.Crews)
	if event.Critical {
		description += "\nOn the critical path"
	}
	description += "\n\nManaged by Takt"
	ev.Props.SetText(ical.PropDescription, description)

	taskProp := ical.NewProp(application.PropXTaktTaskID)
	taskProp.Value = event.TaskID
	ev.Props[application.PropXTaktTaskID] = []ical.Prop{*taskProp}

	cal.Children = append(cal.Children, ev.Component)

	return cal
}

// setDateProp writes a VALUE=DATE property. DTEND stays exclusive,
// which is what RFC 5545 expects for all-day events.
func setDateProp(event *ical.Event, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.Value = t.Format(dateLayout)
	prop.Params.Set(ical.ParamValue, string(ical.ValueDate))
	event.Props.Set(prop)
}

func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// breakerTransport runs every round trip through the circuit breaker.
// A 5xx response counts as a failure so a broken server trips the
// breaker even when the connection itself succeeds.
type breakerTransport struct {
	breaker *gobreaker.CircuitBreaker[*http.Response]
	base    http.RoundTripper
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return nil, fmt.Errorf("caldav server error: %s", resp.Status)
		}
		return resp, nil
	})
}
