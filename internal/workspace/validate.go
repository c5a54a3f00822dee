package workspace

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/planboard/internal/apperr"
	"github.com/starford/planboard/internal/models"
)

// projectIDPattern keeps ids usable as inbox directory names.
var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var errTimestamp = errors.New("must be an ISO 8601 date or date-time")

// timestampRule accepts empty values; anything else must parse.
var timestampRule = validation.By(func(value any) error {
	ts, _ := value.(models.Timestamp)
	if ts.IsZero() || ts.Valid() {
		return nil
	}
	return errTimestamp
})

var timezoneRule = validation.By(func(value any) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return errors.New("must be an IANA time zone name")
	}
	return nil
})

func categoryValues() []any {
	out := make([]any, len(models.Categories))
	for i, c := range models.Categories {
		out[i] = c
	}
	return out
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
}

func validateProject(p models.Project) error {
	return invalid(validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required, validation.Length(1, 128), validation.Match(projectIDPattern)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Timezone, timezoneRule),
	))
}

func validateEvent(ev models.CalendarEvent) error {
	return invalid(validation.ValidateStruct(&ev,
		validation.Field(&ev.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&ev.Category, validation.Required, validation.In(categoryValues()...)),
		validation.Field(&ev.StartAt, timestampRule),
		validation.Field(&ev.EndAt, timestampRule),
	))
}

func validateTask(t models.Task) error {
	return invalid(validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&t.DueDate, timestampRule),
		validation.Field(&t.StartDate, timestampRule),
		validation.Field(&t.EstimatedHours, validation.Min(0.0)),
	))
}
