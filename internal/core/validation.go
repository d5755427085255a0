package core

// validation.go turns submitted forms into validated inputs.
//
// Validation happens at two levels:
//  1. Coercion: each field is parsed from its string form (numbers, dates,
//     ids, tag lists). Malformed values fail with a message naming the field.
//  2. Schema: the coerced input is checked against its struct tags. Only the
//     first failure is reported, translated to a safe action message.

import (
	"errors"
	"net/url"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsValidSlug(fl.Field().String())
	})
	return v
}

// fieldMessages maps struct field names to the message reported when any
// rule on that field fails. "required" failures use requiredMessages first.
var fieldMessages = map[string]string{
	"Name":             MsgNameRequired,
	"Slug":             MsgInvalidSlug,
	"Description":      MsgDescriptionRequired,
	"ShortDescription": MsgDescriptionRequired,
	"LongDescription":  MsgInvalidRequest,
	"ImageURL":         MsgInvalidURL,
	"Link":             MsgInvalidURL,
	"WebsiteURL":       MsgInvalidURL,
	"LogoURL":          MsgInvalidURL,
	"LinkedinURL":      MsgInvalidURL,
	"ContactEmail":     MsgInvalidEmail,
	"Latitude":         MsgInvalidCoordinates,
	"Longitude":        MsgInvalidCoordinates,
}

var requiredMessages = map[string]string{
	"WebsiteURL": MsgWebsiteRequired,
	"Slug":       MsgInvalidSlug,
}

// validateInput runs the struct-tag schema over v.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return internal("validate input", err)
	}

	fe := verrs[0]
	if fe.Tag() == "required" {
		if msg, ok := requiredMessages[fe.StructField()]; ok {
			return &ActionError{Kind: KindValidation, Message: msg, Err: fe}
		}
	}
	if msg, ok := fieldMessages[fe.StructField()]; ok {
		return &ActionError{Kind: KindValidation, Message: msg, Err: fe}
	}
	return &ActionError{Kind: KindValidation, Message: MsgInvalidRequest, Err: fe}
}

// ParseDirectoryForm coerces and validates the editable directory fields.
// An empty slug is derived from the name.
func ParseDirectoryForm(form url.Values) (DirectoryInput, error) {
	in := DirectoryInput{
		Name:        FormValue(form, "name"),
		Slug:        FormValue(form, "slug"),
		Description: FormValue(form, "description"),
		ImageURL:    FormValue(form, "imageUrl"),
		Link:        FormValue(form, "link"),
		Tags:        ParseTags(form.Get("tags")),
		Location:    FormValue(form, "location"),
	}
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}

	var err error
	if in.Latitude, err = ParseOptionalFloat(form.Get("latitude")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidCoordinates, Err: err}
	}
	if in.Longitude, err = ParseOptionalFloat(form.Get("longitude")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidCoordinates, Err: err}
	}

	return in, validateInput(in)
}

// ParseStartupForm coerces and validates the editable startup fields.
// Any "visible" field is ignored; visibility has its own actions.
func ParseStartupForm(form url.Values) (StartupInput, error) {
	in := StartupInput{
		Name:             FormValue(form, "name"),
		ShortDescription: FormValue(form, "shortDescription"),
		LongDescription:  optionalString(form, "longDescription"),
		WebsiteURL:       FormValue(form, "websiteUrl"),
		LogoURL:          optionalString(form, "logoUrl"),
		Location:         FormValue(form, "location"),
		ContactEmail:     optionalString(form, "contactEmail"),
		LinkedinURL:      FormValue(form, "linkedinUrl"),
		Tags:             ParseTags(form.Get("tags")),
		Currency:         FormValue(form, "currency"),
	}

	var err error
	if in.Latitude, err = ParseFloatOrZero(form.Get("latitude")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidCoordinates, Err: err}
	}
	if in.Longitude, err = ParseFloatOrZero(form.Get("longitude")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidCoordinates, Err: err}
	}
	if in.FoundedAt, err = ParseFoundedAt(form.Get("foundedAt")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidDate, Err: err}
	}
	if in.TeamSizeID, err = ParseOptionalUUID(form.Get("teamSizeId")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidTeamSize, Err: err}
	}
	if in.FundingStageID, err = ParseOptionalUUID(form.Get("fundingStageId")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidFundingStage, Err: err}
	}
	if in.AmountRaised, err = ParseAmount(form.Get("amountRaised")); err != nil {
		return in, &ActionError{Kind: KindValidation, Message: MsgInvalidAmount, Err: err}
	}

	return in, validateInput(in)
}
