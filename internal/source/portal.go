package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	"github.com/casepulse/casepulse/internal/config"
	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/pkg/logger"
)

// FormSelectors holds the CSS selectors for a portal's search form.
type FormSelectors struct {
	CaseType   string
	CaseNumber string
	Submit     string
}

// Profile describes one court portal: where to search and how its
// form and result markup are shaped.
type Profile struct {
	Court      string
	BaseURL    string
	SearchPath string
	Form       FormSelectors
	Schema     Schema
}

// BuiltinProfiles returns the supported court portals.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Court:      "Delhi High Court",
			BaseURL:    "https://delhihighcourt.nic.in",
			SearchPath: "/case_status",
			Form: FormSelectors{
				CaseType:   "select[name='ddl_case_type']",
				CaseNumber: "input[name='txt_case_no']",
				Submit:     "input[name='btn_search']",
			},
			Schema: Schema{
				Source: "Delhi High Court",
				Fields: map[string][]string{
					FieldCaseNumber:         {"case number", "case no", "cnr"},
					FieldCaseType:           {"case type"},
					FieldTitle:              {"case title", "party detail"},
					FieldStatus:             {"status", "stage"},
					FieldFilingDate:         {"filing date", "date of filing", "institution"},
					FieldNextHearing:        {"next date", "next hearing"},
					FieldJudge:              {"judge", "coram"},
					FieldPetitioner:         {"petitioner"},
					FieldRespondent:         {"respondent"},
					FieldAdvocatePetitioner: {"advocate for petitioner"},
					FieldAdvocateRespondent: {"advocate for respondent"},
				},
				Orders: map[string][]string{
					OrderFieldDate:        {"date"},
					OrderFieldDescription: {"order", "description", "detail"},
					OrderFieldDocumentURL: {"pdf", "download", "view"},
				},
			},
		},
		{
			Court:      "District Court",
			BaseURL:    "https://districts.ecourts.gov.in",
			SearchPath: "/faridabad/case_status",
			Form: FormSelectors{
				CaseType:   "select[name='case_type']",
				CaseNumber: "input[name='case_number']",
				Submit:     "#search",
			},
			Schema: Schema{
				Source: "District Court",
				Fields: map[string][]string{
					FieldCaseNumber:         {"case number", "case no", "cnr"},
					FieldCaseType:           {"case type"},
					FieldTitle:              {"case title"},
					FieldStatus:             {"status", "stage"},
					FieldFilingDate:         {"filing date", "registration date"},
					FieldNextHearing:        {"next date", "next hearing"},
					FieldJudge:              {"judge", "court number and judge"},
					FieldPetitioner:         {"petitioner"},
					FieldRespondent:         {"respondent"},
					FieldAdvocatePetitioner: {"petitioner advocate"},
					FieldAdvocateRespondent: {"respondent advocate"},
				},
				Orders: map[string][]string{
					OrderFieldDate:        {"date"},
					OrderFieldDescription: {"order", "purpose", "detail"},
					OrderFieldDocumentURL: {"pdf", "download", "view"},
				},
			},
		},
	}
}

// NewBrowser launches the shared browser instance used by portal adapters.
func NewBrowser(cfg *config.Config) (*rod.Browser, error) {
	l := launcher.New().
		Headless(cfg.HeadlessMode).
		Set("user-agent", cfg.UserAgent).
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if cfg.BrowserPath != "" {
		l = l.Bin(cfg.BrowserPath)
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return browser, nil
}

// PortalAdapter fetches case data from one live court portal through a
// browser session. A page is acquired per fetch attempt and closed on
// every exit path.
type PortalAdapter struct {
	profile Profile
	browser *rod.Browser
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewPortalAdapter(profile Profile, browser *rod.Browser, cfg *config.Config, log *logger.Logger) *PortalAdapter {
	perSecond := cfg.PortalRequestsPerMinute / 60
	if perSecond <= 0 {
		perSecond = 1.0 / 6
	}
	return &PortalAdapter{
		profile: profile,
		browser: browser,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log.With("court", profile.Court),
	}
}

func (a *PortalAdapter) Court() string {
	return a.profile.Court
}

func (a *PortalAdapter) Schema() Schema {
	return a.profile.Schema
}

// Fetch runs one search against the portal. The context bounds the whole
// attempt; on timeout the page is still released.
func (a *PortalAdapter) Fetch(ctx context.Context, q *database.Query) (*Payload, error) {
	if strings.TrimSpace(q.CaseNumber) == "" {
		return nil, fmt.Errorf("%w: portal lookup requires a case number", ErrNotFound)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", ErrSourceUnavailable, err)
	}

	page, err := a.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open page: %v", ErrSourceUnavailable, err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		a.log.Warn("Failed to set viewport", "error", err)
	}

	searchURL := a.profile.BaseURL + a.profile.SearchPath
	a.log.Debug("Navigating to portal", "url", searchURL)

	if err := page.Navigate(searchURL); err != nil {
		return nil, fmt.Errorf("%w: navigation failed: %v", ErrSourceUnavailable, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: page load: %v", ErrSourceUnavailable, err)
	}

	if err := a.submitSearch(page, q); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: results load: %v", ErrSourceUnavailable, err)
	}

	if msg := pageErrorText(page); msg != "" {
		if isNoRecordsMessage(msg) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return nil, fmt.Errorf("%w: portal reported: %s", ErrSourceUnavailable, msg)
	}

	fields, err := collectFields(page, a.profile.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(fields) == 0 {
		if pageHasNoRecords(page) {
			return nil, fmt.Errorf("%w: no matching records", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: no recognizable result fields", ErrMalformedResponse)
	}

	fields[FieldCourt] = a.profile.Court
	fields[FieldSourceURL] = searchURL

	return &Payload{
		Source:    a.profile.Court,
		Method:    "portal",
		FetchedAt: time.Now(),
		Fields:    fields,
		Orders:    collectOrders(page, a.profile.Schema, a.profile.BaseURL),
	}, nil
}

// submitSearch fills the portal's search form and submits it.
func (a *PortalAdapter) submitSearch(page *rod.Page, q *database.Query) error {
	if q.CaseType != "" && a.profile.Form.CaseType != "" {
		typeSelect, err := page.Element(a.profile.Form.CaseType)
		if err == nil {
			if err := typeSelect.Select([]string{q.CaseType}, true, rod.SelectorTypeText); err != nil {
				a.log.Warn("Failed to select case type", "type", q.CaseType, "error", err)
			}
		}
	}

	numberInput, err := page.Element(a.profile.Form.CaseNumber)
	if err != nil {
		return fmt.Errorf("%w: case number input not found: %v", ErrSourceUnavailable, err)
	}
	if err := numberInput.Input(q.CaseNumber); err != nil {
		return fmt.Errorf("%w: failed to enter case number: %v", ErrSourceUnavailable, err)
	}

	submitBtn, err := page.Element(a.profile.Form.Submit)
	if err != nil {
		return fmt.Errorf("%w: submit button not found: %v", ErrSourceUnavailable, err)
	}
	if err := submitBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: failed to submit search: %v", ErrSourceUnavailable, err)
	}

	return nil
}
