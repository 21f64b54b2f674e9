package dialogue

import (
	"regexp"
	"strings"

	"github.com/pharmacare/whatsapp-bot/internal/models"
)

var (
	pincodeToken  = regexp.MustCompile(`\b(\d{5,6})\b`)
	pincodeExact  = regexp.MustCompile(`^\d{5,6}$`)
	lineNumbering = regexp.MustCompile(`^\d+\.\s*`)
	nonAlpha      = regexp.MustCompile(`[^a-zA-Z ]`)
)

// ParseError is a structured address parse failure. The engine re-prompts
// without changing state when it sees one.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse address: " + e.Reason
}

// ParseAddress turns free-text, newline-delimited delivery details into a
// structured address. The heuristic: first line is the name, a standalone
// 5-6 digit token is the pincode, the line before it is the city, lines
// between name and city are the address, lines after the pincode are the
// landmark. A pincode embedded inside a line yields the line's alphabetic
// remainder as the city. Ambiguous or incomplete input fails rather than
// guessing.
func ParseAddress(text string) (*models.Address, error) {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 3 {
		return nil, &ParseError{Reason: "need at least name, address and city lines"}
	}

	addr := &models.Address{
		Name: lineNumbering.ReplaceAllString(lines[0], ""),
	}

	if k := standalonePincodeLine(lines); k > 0 {
		addr.Pincode = lines[k]
		if k > 1 {
			addr.City = lines[k-1]
			addr.AddressLines = lines[1 : k-1]
		}
		if k+1 < len(lines) {
			addr.Landmark = strings.Join(lines[k+1:], ", ")
		}
	} else if i, token := embeddedPincodeLine(lines); i > 0 {
		addr.Pincode = token
		remainder := strings.Replace(lines[i], token, "", 1)
		addr.City = strings.TrimSpace(nonAlpha.ReplaceAllString(remainder, " "))
		addr.City = strings.Join(strings.Fields(addr.City), " ")
		addr.AddressLines = lines[1:i]
		if i+1 < len(lines) {
			addr.Landmark = strings.Join(lines[i+1:], ", ")
		}
	} else {
		// No pincode anywhere: best effort for the error report, validation
		// below rejects it.
		addr.City = lines[len(lines)-1]
		addr.AddressLines = lines[1 : len(lines)-1]
	}

	if err := validateAddress(addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func standalonePincodeLine(lines []string) int {
	for i, line := range lines {
		if pincodeExact.MatchString(line) {
			return i
		}
	}
	return -1
}

func embeddedPincodeLine(lines []string) (int, string) {
	for i, line := range lines {
		if i == 0 {
			continue
		}
		if token := pincodeToken.FindString(line); token != "" {
			return i, token
		}
	}
	return -1, ""
}

func validateAddress(addr *models.Address) error {
	switch {
	case addr.Name == "":
		return &ParseError{Reason: "name is missing"}
	case len(addr.AddressLines) == 0:
		return &ParseError{Reason: "address lines are missing"}
	case addr.City == "":
		return &ParseError{Reason: "city is missing"}
	case !pincodeExact.MatchString(addr.Pincode):
		return &ParseError{Reason: "pincode must be a 5-6 digit number"}
	}
	return nil
}

// FlattenAddress joins the address lines into the single string the
// customer profile and order payload carry.
func FlattenAddress(addr *models.Address) string {
	return strings.Join(addr.AddressLines, ", ")
}

// FormatAddress renders the address for the confirmation message.
func FormatAddress(addr *models.Address) string {
	var b strings.Builder
	b.WriteString("*Delivery Address*\n")
	b.WriteString("👤 " + addr.Name + "\n")
	b.WriteString("📍 " + FlattenAddress(addr) + "\n")
	b.WriteString("🏙️ " + addr.City + " - " + addr.Pincode + "\n")
	if addr.Landmark != "" {
		b.WriteString("📌 Landmark: " + addr.Landmark + "\n")
	}
	return b.String()
}
