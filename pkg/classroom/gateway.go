// Package classroom provides a thin Google Classroom client that drains
// paginated listings and reports upstream failures as typed errors.
package classroom

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	classroomapi "google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"

	"github.com/Sternrassler/classroom-client/pkg/pagination"
)

// Prometheus metrics for Classroom gateway operations.
var (
	classroomRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_requests_total",
		Help: "Total Classroom API requests by resource and status",
	}, []string{"resource", "status"})

	classroomRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classroom_request_duration_seconds",
		Help:    "Classroom API request duration in seconds by resource",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	classroomErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_errors_total",
		Help: "Total failed gateway calls by error kind",
	}, []string{"kind"})

	classroomRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_retries_total",
		Help: "Total number of retry attempts by resource",
	}, []string{"resource"})

	classroomRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by resource",
	}, []string{"resource"})

	classroomListPages = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classroom_list_pages",
		Help:    "Number of pages drained per list call by resource",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	}, []string{"resource"})
)

// Resource selectors.
const (
	ResourceCourses        = "courses"
	ResourceCourseStudents = "courses.students"
	ResourceUserProfiles   = "userProfiles"
)

// CourseStateActive is the courseState of courses that are not archived.
const CourseStateActive = "ACTIVE"

// Item types returned by the gateway.
type (
	Course      = classroomapi.Course
	Student     = classroomapi.Student
	UserProfile = classroomapi.UserProfile
)

// ThrottleRecorder is notified whenever a call fails with KindResourceExhausted.
type ThrottleRecorder interface {
	RecordExhausted(ctx context.Context, resource string) error
}

// Gateway exposes Classroom domain operations for a single user's credentials.
type Gateway struct {
	config Config
	logger zerolog.Logger
}

// Config holds the gateway configuration.
type Config struct {
	// AccessToken is the user's OAuth access token (REQUIRED).
	AccessToken string

	// RefreshToken is kept with the credentials but never used; tokens
	// are not refreshed by the gateway.
	RefreshToken string

	// Endpoint overrides the Classroom API base URL (tests, proxies).
	Endpoint string

	// UserAgent is sent with every request when set.
	UserAgent string

	// PageSize is forwarded to list calls; 0 lets the server decide.
	PageSize int64

	// MaxPages bounds a single list call (default 100).
	MaxPages int

	// Retry controls re-sending of transient failures.
	Retry RetryConfig

	// HTTPClient is the base client the bearer token is applied on top of.
	HTTPClient *http.Client

	// Throttle optionally records throttled calls.
	Throttle ThrottleRecorder
}

// DefaultConfig returns a default configuration for the given credentials.
func DefaultConfig(accessToken, refreshToken string) Config {
	return Config{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		MaxPages:     pagination.DefaultMaxPages,
		Retry:        DefaultRetryConfig(),
	}
}

// New creates a new gateway.
func New(cfg Config) (*Gateway, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("access token is required")
	}

	if cfg.Retry.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0 (got %d)", cfg.Retry.Retries)
	}

	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("page size must be >= 0 (got %d)", cfg.PageSize)
	}

	if cfg.MaxPages <= 0 {
		cfg.MaxPages = pagination.DefaultMaxPages
	}

	if cfg.Retry.BackoffMultiplier < 1 {
		cfg.Retry.BackoffMultiplier = 1
	}

	return &Gateway{
		config: cfg,
		logger: log.With().Str("component", "classroom-gateway").Logger(),
	}, nil
}

// service builds a Classroom service handle from the stored credentials.
// Every operation gets its own handle.
func (g *Gateway) service(ctx context.Context) (*classroomapi.Service, error) {
	if g.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.config.HTTPClient)
	}

	token := &oauth2.Token{
		AccessToken: g.config.AccessToken,
		TokenType:   "Bearer",
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if g.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.config.Endpoint))
	}
	if g.config.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(g.config.UserAgent))
	}

	svc, err := classroomapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create classroom service: %w", err)
	}
	return svc, nil
}

// FetchCourses lists the courses the user teaches. With hideArchived only
// ACTIVE courses are returned.
func (g *Gateway) FetchCourses(ctx context.Context, hideArchived bool) ([]*Course, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := Request{
		Resource: ResourceCourses,
		Params:   map[string]string{"teacherId": "me"},
	}
	courses, err := listAll(ctx, g, req, "courses", func(ctx context.Context, pageToken string) (pagination.Page[*Course], error) {
		call := svc.Courses.List().TeacherId("me").Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if g.config.PageSize > 0 {
			call = call.PageSize(g.config.PageSize)
		}

		resp, err := call.Do()
		if err != nil {
			return pagination.Page[*Course]{}, err
		}
		return pagination.Page[*Course]{Items: resp.Courses, NextPageToken: resp.NextPageToken}, nil
	})
	if err != nil {
		return nil, err
	}

	if hideArchived {
		courses = activeCourses(courses)
	}
	return courses, nil
}

// FetchCourse returns a single course.
func (g *Gateway) FetchCourse(ctx context.Context, courseID string) (*Course, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := Request{
		Resource: ResourceCourses,
		Params:   map[string]string{"id": courseID},
	}
	return getObject(ctx, g, req, func(ctx context.Context) (*Course, error) {
		return svc.Courses.Get(courseID).Context(ctx).Do()
	})
}

// FetchStudentsForCourse lists the students enrolled in a course.
func (g *Gateway) FetchStudentsForCourse(ctx context.Context, courseID string) ([]*Student, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := Request{
		Resource: ResourceCourseStudents,
		Params:   map[string]string{"courseId": courseID},
	}
	return listAll(ctx, g, req, "students", func(ctx context.Context, pageToken string) (pagination.Page[*Student], error) {
		call := svc.Courses.Students.List(courseID).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if g.config.PageSize > 0 {
			call = call.PageSize(g.config.PageSize)
		}

		resp, err := call.Do()
		if err != nil {
			return pagination.Page[*Student]{}, err
		}
		return pagination.Page[*Student]{Items: resp.Students, NextPageToken: resp.NextPageToken}, nil
	})
}

// FetchUserProfile returns the profile of the user owning the access token.
func (g *Gateway) FetchUserProfile(ctx context.Context) (*UserProfile, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := Request{
		Resource: ResourceUserProfiles,
		Params:   map[string]string{"userId": "me"},
	}
	return getObject(ctx, g, req, func(ctx context.Context) (*UserProfile, error) {
		return svc.UserProfiles.Get("me").Context(ctx).Do()
	})
}

func activeCourses(courses []*Course) []*Course {
	active := make([]*Course, 0, len(courses))
	for _, c := range courses {
		if c.CourseState == CourseStateActive {
			active = append(active, c)
		}
	}
	return active
}
