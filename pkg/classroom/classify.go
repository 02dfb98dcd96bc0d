package classroom

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// classificationRule maps an upstream failure onto an ErrorKind. A rule
// matches on a status code, a marker in the error body, or either.
type classificationRule struct {
	kind    ErrorKind
	message string
	status  int
	marker  string
	// withDetails attaches the raw error body to the classified error.
	withDetails bool
}

// classificationRules is evaluated top to bottom and the first match wins.
//
// Classroom does not expose structured codes for most of these conditions,
// so the markers are matched against the raw error text. They are tied to
// Google's wording and break silently if it changes.
var classificationRules = []classificationRule{
	{
		kind:        KindInvalidCredentials,
		message:     "The user has an access token, but it's not valid.",
		status:      http.StatusUnauthorized,
		withDetails: true,
	},
	{
		kind:        KindInsufficientScope,
		message:     "Insufficient authentication scopes.",
		marker:      "insufficient authentication scopes",
		withDetails: true,
	},
	{
		kind:        KindNotLinked,
		message:     "User is not linked to Google Apps for Education.",
		marker:      "@NotGoogleAppsUser",
		withDetails: true,
	},
	{
		kind:        KindClassroomDisabled,
		message:     "Google Classroom is disabled.",
		marker:      "@ClassroomDisabled",
		withDetails: true,
	},
	{
		kind:        KindClassroomAPIDisabled,
		message:     "Google Classroom API is disabled.",
		marker:      "@ClassroomApiDisabled",
		withDetails: true,
	},
	{
		kind:    KindResourceExhausted,
		message: "Too many requests.",
		status:  http.StatusTooManyRequests,
	},
}

func (r classificationRule) matches(code int, body string) bool {
	if r.status != 0 && code == r.status {
		return true
	}
	return r.marker != "" && strings.Contains(body, r.marker)
}

// Classify converts a transport failure into a *ClassroomError when it
// matches a known condition. Anything else, including nil, is returned
// unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *ClassroomError
	if errors.As(err, &classified) {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		rule := classificationRules[0]
		return &ClassroomError{
			Kind:    rule.kind,
			Message: rule.message,
			Details: string(retrieveErr.Body),
			Err:     err,
		}
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	body := errorBody(apiErr)
	for _, rule := range classificationRules {
		if !rule.matches(apiErr.Code, body) {
			continue
		}
		ce := &ClassroomError{
			Kind:       rule.kind,
			StatusCode: apiErr.Code,
			Message:    rule.message,
			Err:        err,
		}
		if rule.withDetails {
			ce.Details = body
		}
		return ce
	}

	return err
}

// errorBody returns the raw response payload of an API error, falling back
// to the decoded message when the body was not captured.
func errorBody(apiErr *googleapi.Error) string {
	if apiErr.Body != "" {
		return apiErr.Body
	}
	return apiErr.Message
}
