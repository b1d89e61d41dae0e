package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Seryozh/logiscan/internal/features/manifest/domain"

	"github.com/google/uuid"
)

var (
	// multiSpace splits columns separated by runs of two or more spaces.
	multiSpace = regexp.MustCompile(`\s{2,}`)
	// anchor recognizes the "CARRIER - #REF - ..." shape even when only
	// single spaces separate the columns around it.
	anchor = regexp.MustCompile(`^(.*?\S) - #(\d+) - (.*)$`)
	// apartmentRe matches a unit code at the start of a field.
	apartmentRe = regexp.MustCompile(`(?i)^([A-Z][0-9]{2}[A-Z])`)
	// noTrackingRe matches the known "no tracking number" phrases, optionally
	// followed by dash separators and a recipient name.
	noTrackingRe = regexp.MustCompile(`(?i)^(NO\s+TRK\b|NO\s+TRACKING(?:\s+NUMBER)?\b)[\s\-–]*(.*)$`)
)

// Result is the outcome of one Parse call: every non-blank input line ends up
// either as a package or as a diagnostic, never both, never neither.
type Result struct {
	Packages []domain.Package      `json:"packages"`
	Errors   []domain.ParsingError `json:"errors"`
}

// Parser converts raw manifest text into validated Package records.
// It never fails as a whole: malformed lines become per-line diagnostics.
type Parser struct {
	allowedPrefixes map[byte]bool
	now             func() time.Time
	newID           func() string
}

// Option customizes a Parser.
type Option func(*Parser)

// WithAllowedPrefixes restricts the leading letter of apartment codes to the
// given set (e.g. "C" or "CD"). An empty string accepts any letter.
func WithAllowedPrefixes(prefixes string) Option {
	return func(p *Parser) {
		prefixes = strings.ToUpper(strings.TrimSpace(prefixes))
		if prefixes == "" {
			p.allowedPrefixes = nil
			return
		}
		set := make(map[byte]bool, len(prefixes))
		for i := 0; i < len(prefixes); i++ {
			set[prefixes[i]] = true
		}
		p.allowedPrefixes = set
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse processes newline-separated manifest text. Blank lines are skipped
// silently. Line numbers in diagnostics are 1-based positions in the input.
func (p *Parser) Parse(rawText string) Result {
	result := Result{
		Packages: make([]domain.Package, 0),
		Errors:   make([]domain.ParsingError, 0),
	}

	seen := make(map[string]bool)

	for i, line := range strings.Split(rawText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		pkg, err := p.parseLineSafe(trimmed)
		if err != nil {
			result.Errors = append(result.Errors, domain.ParsingError{
				LineNumber: i + 1,
				Line:       trimmed,
				Reason:     err.Error(),
			})
			continue
		}

		key := pkg.ComboKey()
		if seen[key] {
			result.Errors = append(result.Errors, domain.ParsingError{
				LineNumber: i + 1,
				Line:       trimmed,
				Reason: fmt.Sprintf("Duplicate entry: apartment %s with tracking ending %s already listed",
					pkg.Apartment, pkg.TrackingTail.String()),
			})
			continue
		}
		seen[key] = true

		result.Packages = append(result.Packages, pkg)
	}

	return result
}

// parseLineSafe isolates a single line: a panic inside line processing becomes
// a diagnostic for that line only.
func (p *Parser) parseLineSafe(line string) (pkg domain.Package, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error while parsing line: %v", r)
		}
	}()
	return p.parseLine(line)
}

func (p *Parser) parseLine(line string) (domain.Package, error) {
	fields, err := segment(line)
	if err != nil {
		return domain.Package{}, err
	}

	apartment, err := p.extractApartment(fields[0])
	if err != nil {
		return domain.Package{}, err
	}

	carrierField := pickCarrierField(fields)

	carrier, trailing, err := decomposeCarrier(carrierField)
	if err != nil {
		return domain.Package{}, err
	}

	tail, fullTracking, recipient, err := parseTrailing(trailing)
	if err != nil {
		return domain.Package{}, err
	}

	return domain.Package{
		ID:           p.newID(),
		Apartment:    apartment,
		TrackingTail: tail,
		Carrier:      carrier,
		Recipient:    recipient,
		FullTracking: fullTracking,
		ImportedAt:   p.now(),
		Status:       domain.PackageStatusPending,
	}, nil
}

// segment splits a line into columns. Tabs win if present, then runs of two
// or more spaces. When neither yields enough columns, the carrier anchor
// ("... CARRIER - #REF - ...") is used to cut a single-spaced line in two.
func segment(line string) ([]string, error) {
	var fields []string

	if strings.Contains(line, "\t") {
		fields = splitNonEmpty(strings.Split(line, "\t"))
	} else {
		fields = splitNonEmpty(multiSpace.Split(line, -1))
	}

	if len(fields) >= 3 {
		return fields, nil
	}

	if anchored, ok := segmentByAnchor(line); ok {
		return anchored, nil
	}

	return nil, fmt.Errorf("insufficient fields: expected at least 3 columns, got %d", len(fields))
}

// segmentByAnchor reconstructs the three canonical columns from a
// single-spaced line using the "#<digits>" reference anchor. Everything left
// of the anchor minus its last token is the apartment+entity half; the last
// token is the carrier name.
func segmentByAnchor(line string) ([]string, bool) {
	m := anchor.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	left, ref, rest := m[1], m[2], m[3]

	tokens := strings.Fields(left)
	if len(tokens) < 2 {
		return nil, false
	}

	carrier := tokens[len(tokens)-1]
	entity := strings.Join(tokens[1:len(tokens)-1], " ")
	carrierField := carrier + " - #" + ref + " - " + rest

	return []string{left, entity, carrierField}, true
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// pickCarrierField locates the carrier column: the first field carrying the
// reference anchor, falling back to the third column.
func pickCarrierField(fields []string) string {
	for _, f := range fields {
		if strings.Contains(f, " - #") {
			return f
		}
	}
	return fields[2]
}

// extractApartment matches the unit code at the start of the field and
// uppercases it.
func (p *Parser) extractApartment(field string) (string, error) {
	m := apartmentRe.FindStringSubmatch(field)
	if m == nil {
		return "", fmt.Errorf("apartment code not found in %q", field)
	}

	apartment := strings.ToUpper(m[1])
	if p.allowedPrefixes != nil && !p.allowedPrefixes[apartment[0]] {
		return "", fmt.Errorf("apartment code not found in %q (prefix %c not accepted)", field, apartment[0])
	}

	return apartment, nil
}

// decomposeCarrier splits "CARRIER - #REF - TRACKING RECIPIENT..." into the
// carrier name and the trailing tracking segment. The reference number is
// parsed but discarded.
func decomposeCarrier(field string) (carrier, trailing string, err error) {
	parts := strings.SplitN(field, " - ", 3)
	if len(parts) != 3 {
		return "", "", fmt.Errorf("invalid carrier/tracking format in %q", field)
	}

	carrier = domain.NormalizeCarrier(parts[0])
	trailing = strings.TrimSpace(parts[2])
	return carrier, trailing, nil
}

// parseTrailing decomposes the tracking segment: either a recognized
// "no tracking" phrase (optionally followed by a recipient), or a tracking
// token followed by the recipient name.
func parseTrailing(trailing string) (domain.TrackingTail, string, string, error) {
	if m := noTrackingRe.FindStringSubmatch(trailing); m != nil {
		recipient := strings.TrimSpace(m[2])
		if recipient == "" {
			recipient = domain.UnknownRecipient
		}
		return domain.NoTrackingTail(), m[1], recipient, nil
	}

	tokens := strings.Fields(trailing)
	if len(tokens) == 0 {
		return domain.TrackingTail{}, "", "", fmt.Errorf("invalid carrier/tracking format: missing tracking number")
	}

	tail, err := domain.NewTrackingTail(tokens[0])
	if err != nil {
		return domain.TrackingTail{}, "", "", err
	}

	recipient := strings.Join(tokens[1:], " ")
	return tail, tokens[0], recipient, nil
}
