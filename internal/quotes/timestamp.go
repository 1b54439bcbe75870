package quotes

import (
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

// Upload timestamps use one ISO-8601 profile: extended calendar date, a
// literal T, hours and minutes, optional seconds with optional fraction, and
// a mandatory zone of Z or ±hh:mm. Basic format, date-only and zone-less
// values are rejected.
var uploadLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// ParseUploaded parses s under the upload timestamp profile and returns the
// instant in UTC.
func ParseUploaded(s string) (time.Time, error) {
	for _, layout := range uploadLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DDThh:mm[:ss[.f]] with Z or ±hh:mm", apperrors.ErrInvalidTimestamp, s)
}
