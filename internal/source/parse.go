package source

import (
	"regexp"
	"strings"

	"github.com/go-rod/rod"
)

// collectFields scans result tables for two-column label/value rows and
// keeps the ones the schema recognizes. Keys stay raw; the normalizer
// resolves them.
func collectFields(page *rod.Page, schema Schema) (map[string]string, error) {
	fields := make(map[string]string)

	tables, err := page.Elements("table")
	if err != nil {
		return nil, err
	}

	for _, table := range tables {
		rows, err := table.Elements("tr")
		if err != nil {
			continue
		}
		for _, row := range rows {
			cells, err := row.Elements("td, th")
			if err != nil || len(cells) < 2 {
				continue
			}
			label, err := cells[0].Text()
			if err != nil {
				continue
			}
			value, err := cells[1].Text()
			if err != nil {
				continue
			}
			label = strings.TrimSuffix(strings.TrimSpace(label), ":")
			value = strings.TrimSpace(value)
			if label == "" || value == "" {
				continue
			}
			if _, ok := schema.Resolve(label); !ok {
				continue
			}
			if _, exists := fields[label]; !exists {
				fields[label] = value
			}
		}
	}

	// Structured markup failed, fall back to text patterns.
	if len(fields) == 0 {
		body, err := page.Element("body")
		if err == nil {
			if text, err := body.Text(); err == nil {
				for k, v := range extractFieldsFromText(text) {
					fields[k] = v
				}
			}
		}
	}

	return fields, nil
}

var (
	caseNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Case\s*No[\.\s:]+([A-Z]+[\(\)A-Z\s]*\d+[\/\-]\d+)`),
		regexp.MustCompile(`CNR\s*Number[\.\s:]+([A-Z0-9]+)`),
		regexp.MustCompile(`([A-Z]+[\/\-]\d+[\/\-]\d{4})`),
	}
	datePattern       = regexp.MustCompile(`(\d{1,2}[\-\/\.]\d{1,2}[\-\/\.]\d{4})`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// extractFieldsFromText pulls whatever it can out of unstructured result
// text. Keys are canonical because there are no source labels to keep.
func extractFieldsFromText(text string) map[string]string {
	fields := make(map[string]string)

	for _, pattern := range caseNumberPatterns {
		if matches := pattern.FindStringSubmatch(text); len(matches) > 1 {
			fields[FieldCaseNumber] = strings.TrimSpace(matches[1])
			break
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "filing date") || strings.Contains(lower, "institution"):
			if date := datePattern.FindString(line); date != "" {
				fields[FieldFilingDate] = date
			}
		case strings.Contains(lower, "next") && strings.Contains(lower, "date"):
			if date := datePattern.FindString(line); date != "" {
				fields[FieldNextHearing] = date
			}
		case strings.Contains(lower, "petitioner") && strings.Contains(line, ":"):
			if v := valueAfterColon(line); v != "" {
				fields[FieldPetitioner] = v
			}
		case strings.Contains(lower, "respondent") && strings.Contains(line, ":"):
			if v := valueAfterColon(line); v != "" {
				fields[FieldRespondent] = v
			}
		case strings.Contains(lower, "status") && strings.Contains(line, ":"):
			if v := valueAfterColon(line); v != "" {
				fields[FieldStatus] = v
			}
		}
	}

	return fields
}

func valueAfterColon(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(parts[1], " "))
}

// collectOrders finds the orders/judgments table and returns its rows as
// raw column maps keyed by canonical order fields.
func collectOrders(page *rod.Page, schema Schema, baseURL string) []map[string]string {
	var orders []map[string]string

	tables, err := page.Elements("table")
	if err != nil {
		return nil
	}

	for _, table := range tables {
		text, err := table.Text()
		if err != nil || !strings.Contains(strings.ToLower(text), "order") {
			continue
		}

		rows, err := table.Elements("tr")
		if err != nil || len(rows) < 2 {
			continue
		}

		// Map header columns to canonical order fields.
		headerCells, err := rows[0].Elements("td, th")
		if err != nil {
			continue
		}
		columns := make(map[int]string)
		for i, cell := range headerCells {
			label, err := cell.Text()
			if err != nil {
				continue
			}
			if canonical, ok := schema.ResolveOrder(label); ok {
				columns[i] = canonical
			}
		}
		if len(columns) == 0 {
			continue
		}

		for _, row := range rows[1:] {
			cells, err := row.Elements("td")
			if err != nil || len(cells) == 0 {
				continue
			}
			entry := make(map[string]string)
			for i, cell := range cells {
				canonical, ok := columns[i]
				if !ok {
					continue
				}
				value, err := cell.Text()
				if err != nil {
					continue
				}
				entry[canonical] = strings.TrimSpace(value)
			}
			if link := firstDocumentLink(row, baseURL); link != "" {
				entry[OrderFieldDocumentURL] = link
			}
			if len(entry) > 0 {
				orders = append(orders, entry)
			}
		}

		if len(orders) > 0 {
			break
		}
	}

	return orders
}

// firstDocumentLink returns the first PDF/download link in a row, made
// absolute against the portal base URL.
func firstDocumentLink(row *rod.Element, baseURL string) string {
	links, err := row.Elements("a")
	if err != nil {
		return ""
	}
	for _, link := range links {
		href, err := link.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		lower := strings.ToLower(*href)
		if strings.Contains(lower, "pdf") || strings.Contains(lower, "download") || strings.Contains(lower, "order") {
			return makeAbsoluteURL(baseURL, *href)
		}
	}
	return ""
}

func makeAbsoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(baseURL, "/") + href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + href
}

var noRecordPhrases = []string{
	"no record",
	"no records found",
	"not found",
	"invalid case",
	"no data available",
}

func isNoRecordsMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range noRecordPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// pageErrorText checks the usual error containers for a message.
func pageErrorText(page *rod.Page) string {
	errorSelectors := []string{
		"div.error",
		"div.alert-danger",
		"span.error-message",
		"div#errormsg",
	}

	for _, selector := range errorSelectors {
		elem, err := page.Element(selector)
		if err != nil || elem == nil {
			continue
		}
		text, err := elem.Text()
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}

	return ""
}

// pageHasNoRecords checks the body text for "no records" style messages.
func pageHasNoRecords(page *rod.Page) bool {
	body, err := page.Element("body")
	if err != nil {
		return false
	}
	text, err := body.Text()
	if err != nil {
		return false
	}
	return isNoRecordsMessage(text)
}
