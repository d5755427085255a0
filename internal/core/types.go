package core

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// PageSize is the fixed number of rows returned per listing page.
const PageSize = 25

// MaxPage keeps (page-1)*PageSize within a 32-bit OFFSET.
const MaxPage = math.MaxInt32/PageSize + 1

// MaxSubmissionTags caps the tags a startup submission may carry.
const MaxSubmissionTags = 2

// Directory is a named, owned collection of startups addressed by a unique slug.
type Directory struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"imageUrl"`
	Link          string    `json:"link"`
	Tags          []string  `json:"tags"`
	Location      string    `json:"location"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Slug          string    `json:"slug"`
	UserID        string    `json:"userId"`
	Featured      bool      `json:"featured"`
	FeaturedOrder *int      `json:"featuredOrder"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Startup is a single organisation listed in exactly one directory.
// Visible=false means pending approval or hidden by the owner.
type Startup struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	ShortDescription string        `json:"shortDescription"`
	LongDescription  *string       `json:"longDescription"`
	WebsiteURL       string        `json:"websiteUrl"`
	LogoURL          *string       `json:"logoUrl"`
	Slug             string        `json:"slug"`
	FoundedAt        *time.Time    `json:"foundedAt"`
	Location         string        `json:"location"`
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	TeamSizeID       *uuid.UUID    `json:"teamSizeId"`
	FundingStageID   *uuid.UUID    `json:"fundingStageId"`
	ContactEmail     *string       `json:"contactEmail"`
	LinkedinURL      string        `json:"linkedinUrl"`
	Tags             []string      `json:"tags"`
	AmountRaised     *float64      `json:"amountRaised"`
	Currency         string        `json:"currency"`
	DirectoryID      uuid.UUID     `json:"directoryId"`
	DirectorySlug    string        `json:"directorySlug,omitempty"`
	Visible          bool          `json:"visible"`
	CreatedAt        time.Time     `json:"createdAt"`
	TeamSize         *TeamSize     `json:"teamSize,omitempty"`
	FundingStage     *FundingStage `json:"fundingStage,omitempty"`
}

// StartupLocation is the minimal projection used for map pins.
type StartupLocation struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Location  string    `json:"location"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// TeamSize is a reference bucket ordered by MinSize.
type TeamSize struct {
	ID      uuid.UUID `json:"id" yaml:"-"`
	Name    string    `json:"name" yaml:"name"`
	MinSize int       `json:"minSize" yaml:"minSize"`
	MaxSize *int      `json:"maxSize" yaml:"maxSize"`
}

// FundingStage is a reference stage ordered by Order.
type FundingStage struct {
	ID    uuid.UUID `json:"id" yaml:"-"`
	Name  string    `json:"name" yaml:"name"`
	Order int       `json:"order" yaml:"order"`
}

// Page is one slice of a filtered listing plus the total match count.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// SortOrder names a listing order accepted from the query string.
type SortOrder string

const (
	SortNameAsc           SortOrder = "nameAsc"
	SortNameDesc          SortOrder = "nameDesc"
	SortCreatedAtAsc      SortOrder = "createdAtAsc"
	SortCreatedAtDesc     SortOrder = "createdAtDesc"
	SortFoundedAtAsc      SortOrder = "foundedAtAsc"
	SortFoundedAtDesc     SortOrder = "foundedAtDesc"
	SortFeaturedOrderAsc  SortOrder = "featuredOrderAsc"
	SortFeaturedOrderDesc SortOrder = "featuredOrderDesc"
)

// StatusFilter narrows the admin submissions view.
type StatusFilter string

const (
	StatusAll     StatusFilter = ""
	StatusPending StatusFilter = "pending"
	StatusVisible StatusFilter = "visible"
)

// StartupQuery is the parsed filter/sort/page request for startup listings.
type StartupQuery struct {
	Name            string
	Tags            []string
	FundingStageIDs []uuid.UUID
	TeamSizeIDs     []uuid.UUID
	Page            int
	Sort            SortOrder
	Status          StatusFilter
}

// DirectoryQuery is the parsed filter/sort/page request for directory listings.
type DirectoryQuery struct {
	Name string
	Tags []string
	Page int
	Sort SortOrder
}

// StartupFilter is what the store executes: a StartupQuery resolved against
// a directory with pagination applied.
type StartupFilter struct {
	DirectoryID     uuid.UUID
	Name            string
	Tags            []string
	FundingStageIDs []uuid.UUID
	TeamSizeIDs     []uuid.UUID
	Visible         *bool
	Sort            SortOrder
	Limit           int
	Offset          int
}

// DirectoryFilter is the store-level form of a DirectoryQuery.
type DirectoryFilter struct {
	Name         string
	Tags         []string
	FeaturedOnly bool
	Sort         SortOrder
	Limit        int
	Offset       int
}

// DirectoryInput holds the editable fields of a directory.
type DirectoryInput struct {
	Name        string   `validate:"required,max=200"`
	Slug        string   `validate:"required,max=100,slug"`
	Description string   `validate:"required,max=5000"`
	ImageURL    string   `validate:"omitempty,http_url"`
	Link        string   `validate:"omitempty,http_url"`
	Tags        []string `validate:"dive,max=50"`
	Location    string   `validate:"max=300"`
	Latitude    *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `validate:"omitempty,gte=-180,lte=180"`
}

// StartupInput holds the editable fields of a startup.
type StartupInput struct {
	Name             string  `validate:"required,max=200"`
	ShortDescription string  `validate:"required,max=500"`
	LongDescription  *string `validate:"omitempty,max=10000"`
	WebsiteURL       string  `validate:"required,http_url"`
	LogoURL          *string `validate:"omitempty,http_url"`
	FoundedAt        *time.Time
	Location         string  `validate:"max=300"`
	Latitude         float64 `validate:"gte=-90,lte=90"`
	Longitude        float64 `validate:"gte=-180,lte=180"`
	TeamSizeID       *uuid.UUID
	FundingStageID   *uuid.UUID
	ContactEmail     *string  `validate:"omitempty,email"`
	LinkedinURL      string   `validate:"omitempty,http_url"`
	Tags             []string `validate:"dive,max=50"`
	AmountRaised     pgtype.Numeric
	Currency         string `validate:"max=10"`
}

// NewDirectory is a DirectoryInput bound to its owner.
type NewDirectory struct {
	DirectoryInput
	UserID string
}

// NewStartup is a StartupInput bound to its directory with a derived slug.
type NewStartup struct {
	StartupInput
	DirectoryID uuid.UUID
	Slug        string
	Visible     bool
}
