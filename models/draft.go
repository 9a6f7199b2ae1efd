package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// AllowedImageTypes are the MIME types accepted for issue photos.
var AllowedImageTypes = []string{"image/jpeg", "image/png"}

// ImageUpload is a raw image attached to a new issue.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// IssueDraft is the input for creating an issue.
type IssueDraft struct {
	Title       string        `json:"title" form:"title" validate:"required,min=5,max=100"`
	Description string        `json:"description" form:"description" validate:"required,min=10,max=1000"`
	Category    IssueCategory `json:"category" form:"category" validate:"required,oneof=Road Water Cleanliness Lighting Safety"`
	Latitude    *float64      `json:"latitude" form:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64      `json:"longitude" form:"longitude" validate:"required,gte=-180,lte=180"`
	Address     string        `json:"address" form:"address" validate:"max=200"`
	IsAnonymous bool          `json:"isAnonymous" form:"isAnonymous"`

	OwnerID string        `json:"-" form:"-"`
	Images  []ImageUpload `json:"-" form:"-"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims free-text fields the same way the store persists them.
func (d *IssueDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Address = strings.TrimSpace(d.Address)
	d.OwnerID = strings.TrimSpace(d.OwnerID)
}

// Validate checks every field constraint and returns a *ValidationError
// listing all violations, or nil.
func (d *IssueDraft) Validate(maxImageSize int64) error {
	verr := &ValidationError{}

	if err := draftValidator().Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), describeFieldError(fe))
		}
	}

	switch {
	case d.IsAnonymous && d.OwnerID != "":
		verr.Add("user", "anonymous issues cannot have an owner")
	case !d.IsAnonymous && d.OwnerID == "":
		verr.Add("user", "is required unless the issue is anonymous")
	}

	if len(d.Images) > MaxImagesPerIssue {
		verr.Add("images", fmt.Sprintf("maximum %d images allowed per issue", MaxImagesPerIssue))
	}
	for i, img := range d.Images {
		field := fmt.Sprintf("images[%d]", i)
		if len(img.Data) == 0 {
			verr.Add(field, "is empty")
			continue
		}
		if maxImageSize > 0 && int64(len(img.Data)) > maxImageSize {
			verr.Add(field, fmt.Sprintf("exceeds %d bytes", maxImageSize))
		}
		if !mimetype.EqualsAny(mimetype.Detect(img.Data).String(), AllowedImageTypes...) {
			verr.Add(field, "must be a JPEG or PNG image")
		}
	}

	return verr.OrNil()
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("cannot exceed %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return "is invalid"
}
