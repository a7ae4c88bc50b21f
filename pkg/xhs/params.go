package xhs

import "github.com/go-playground/validator/v10"

// SearchParams are the note search inputs. Zero values are left out of
// the request and the backend applies its own defaults.
type SearchParams struct {
	Keyword  string         `validate:"required"`
	Page     int            `validate:"omitempty,min=1"`
	Sort     SortOrder      `validate:"omitempty,oneof=general time_descending popularity_descending"`
	NoteType SearchNoteType `validate:"omitempty,oneof=all video normal"`
}

type feedParams struct {
	Category string `validate:"required,feed_category"`
	Num      int    `validate:"min=1,max=100"`
}

type noteParams struct {
	NoteID string `validate:"required"`
}

type userSearchParams struct {
	Keyword string `validate:"required"`
	Page    int    `validate:"omitempty,min=1"`
}

type notificationParams struct {
	Kind NotificationKind `validate:"oneof=mentions connections likes"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("feed_category", func(fl validator.FieldLevel) bool {
		return IsFeedCategory(fl.Field().String())
	})
	return v
}
