// Package model defines the campaign record produced by platform adapters
// and the persistence entities built from it.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Completion is the derived lifecycle state of a campaign.
type Completion string

const (
	CompletionCurrent   Completion = "Current"
	CompletionCompleted Completion = "Completed"
)

// CampaignRecord is the normalized extraction result for one crowdfunding
// project. Numeric-looking fields are typed internally; display strings with
// currency symbols and separators are produced only by Display and the
// materializer.
type CampaignRecord struct {
	URL           string
	Title         string
	OriginalTitle string

	ProjectOwner string
	OwnerWebsite string
	OwnerSNS     string
	OwnerCountry string
	ContactInfo  string

	Status          string
	AchievementRate Percent
	Supporters      int
	Raised          Money
	Goal            Money
	StartDate       string
	EndDate         string
	Completion      Completion

	Category    string
	Platform    string
	Description string
	ImageURL    string
}

// DeriveCompletion computes the Current/Completed state from the status
// string, the achievement rate and the end date.
func (r *CampaignRecord) DeriveCompletion(now time.Time) Completion {
	switch r.Status {
	case "successful", "ended", "completed":
		return CompletionCompleted
	case "live", "published":
		return CompletionCurrent
	}
	if r.EndDate != "" {
		if end, err := time.Parse("2006-01-02", r.EndDate); err == nil && end.Before(now) {
			return CompletionCompleted
		}
	}
	return CompletionCurrent
}

// Display renders the record as the legacy field-name/display-string document
// used in result files and API responses.
func (r *CampaignRecord) Display() map[string]any {
	supporters := ""
	if r.Supporters > 0 {
		supporters = strconv.Itoa(r.Supporters)
	}
	return map[string]any{
		"url":                          r.URL,
		"title":                        r.Title,
		"original_title":               r.OriginalTitle,
		"project_owner":                r.ProjectOwner,
		"owner_website":                r.OwnerWebsite,
		"owner_sns":                    r.OwnerSNS,
		"owner_country":                r.OwnerCountry,
		"contact_info":                 r.ContactInfo,
		"status":                       r.Status,
		"achievement_rate":             r.AchievementRate.String(),
		"supporters":                   supporters,
		"amount":                       r.Raised.String(),
		"support_amount":               r.Goal.String(),
		"crowdfund_start_date":         r.StartDate,
		"crowdfund_end_date":           r.EndDate,
		"current_or_completed_project": string(r.Completion),
		"category":                     r.Category,
		"platform":                     r.Platform,
		"description":                  r.Description,
		"image_url":                    r.ImageURL,
	}
}

// RecordFromDisplay rebuilds a CampaignRecord from a display document, the
// inverse of Display. Used when re-enhancing previously written results.
func RecordFromDisplay(doc map[string]any) CampaignRecord {
	str := func(field string) string {
		s, _ := doc[field].(string)
		return s
	}
	raised := ParseMoney(str("amount"), "")
	goal := ParseMoney(str("support_amount"), "")
	// Rewritten documents sometimes carry the currency symbol on only one of
	// the two amounts; the other inherits it.
	switch {
	case raised.Symbol == "" && goal.Symbol != "":
		raised = raised.WithSymbol(goal.Symbol)
	case goal.Symbol == "" && raised.Symbol != "":
		goal = goal.WithSymbol(raised.Symbol)
	}
	return CampaignRecord{
		URL:             str("url"),
		Title:           str("title"),
		OriginalTitle:   str("original_title"),
		ProjectOwner:    str("project_owner"),
		OwnerWebsite:    str("owner_website"),
		OwnerSNS:        str("owner_sns"),
		OwnerCountry:    str("owner_country"),
		ContactInfo:     str("contact_info"),
		Status:          str("status"),
		AchievementRate: ParsePercent(str("achievement_rate")),
		Supporters:      ParseCount(str("supporters")),
		Raised:          raised,
		Goal:            goal,
		StartDate:       str("crowdfund_start_date"),
		EndDate:         str("crowdfund_end_date"),
		Completion:      Completion(str("current_or_completed_project")),
		Category:        str("category"),
		Platform:        str("platform"),
		Description:     str("description"),
		ImageURL:        str("image_url"),
	}
}

// EnhancedRecord wraps a CampaignRecord with OCR enhancement provenance.
// Exactly one of these holds for every record leaving the pipeline:
// enhanced (OCREnhanced true, OCRError empty), failed (OCREnhanced false,
// OCRError set), or skipped (neither). Built once, never re-enhanced.
type EnhancedRecord struct {
	Record CampaignRecord

	OCREnhanced      bool
	OCRError         string
	ConfidenceScores map[string]float64
	ImagesProcessed  int
	EnhancedAt       time.Time

	// Full-record field payloads returned by the OCR service, keyed by the
	// legacy display field names.
	EnglishPayload  map[string]string
	OriginalPayload map[string]string
}

// Skipped reports whether the record bypassed enhancement because its data
// was already complete.
func (e *EnhancedRecord) Skipped() bool {
	return !e.OCREnhanced && e.OCRError == ""
}

// SearchStatus is the lifecycle state of a Search.
type SearchStatus string

const (
	SearchStatusRunning   SearchStatus = "running"
	SearchStatusCompleted SearchStatus = "completed"
)

// Search is one user-initiated query. Searches are historical records and
// are never deleted by the system.
type Search struct {
	ID          string
	UserID      string
	Platform    string
	Category    string
	Keyword     string
	Language    string
	EnableOCR   bool
	ResultCount int
	Status      SearchStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScrapedItem is the persisted, immutable projection of a campaign record
// tied to one Search. Display strings are stored as-is (legacy schema);
// OriginalData carries the full serialized record for audit.
type ScrapedItem struct {
	ID       string
	SearchID string
	UserID   string

	Title           string
	Description     string
	Platform        string
	Category        string
	Keyword         string
	URL             string
	ImageURL        string
	Raised          string
	Goal            string
	Backers         string
	Status          string
	OwnerName       string
	OwnerCountry    string
	StartDate       string
	EndDate         string
	AchievementRate string

	IsRelevant   bool
	OCREnhanced  bool
	OCRError     string
	OriginalData json.RawMessage

	CreatedAt time.Time
}

// NewScrapedItem projects an enhanced record into its persisted form.
func NewScrapedItem(userID, searchID, category, keyword string, rec EnhancedRecord) ScrapedItem {
	original, _ := json.Marshal(rec.Record.Display())
	supporters := ""
	if rec.Record.Supporters > 0 {
		supporters = strconv.Itoa(rec.Record.Supporters)
	}
	return ScrapedItem{
		UserID:          userID,
		SearchID:        searchID,
		Title:           rec.Record.Title,
		Description:     rec.Record.Description,
		Platform:        rec.Record.Platform,
		Category:        category,
		Keyword:         keyword,
		URL:             rec.Record.URL,
		ImageURL:        rec.Record.ImageURL,
		Raised:          rec.Record.Raised.String(),
		Goal:            rec.Record.Goal.String(),
		Backers:         supporters,
		Status:          rec.Record.Status,
		OwnerName:       rec.Record.ProjectOwner,
		OwnerCountry:    rec.Record.OwnerCountry,
		StartDate:       rec.Record.StartDate,
		EndDate:         rec.Record.EndDate,
		AchievementRate: rec.Record.AchievementRate.String(),
		IsRelevant:      true,
		OCREnhanced:     rec.OCREnhanced,
		OCRError:        rec.OCRError,
		OriginalData:    original,
	}
}

// User owns searches and saved items.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// SavedItem is a user bookmark of a scraped item. At most one exists per
// (user, scraped item) pair.
type SavedItem struct {
	ID            string
	UserID        string
	ScrapedItemID string
	CreatedAt     time.Time
}
