package domain

// Domain is the admission classification of a session.
type Domain string

const (
	DomainUnset     Domain = ""
	DomainFinancial Domain = "financial"
	DomainLegal     Domain = "legal"
)

// Valid reports whether d is one of the specialist domains.
func (d Domain) Valid() bool {
	return d == DomainFinancial || d == DomainLegal
}

// String returns "unset" for the zero value.
func (d Domain) String() string {
	if d == DomainUnset {
		return "unset"
	}
	return string(d)
}

// ParseDomain maps user or model supplied labels to a Domain.
// It accepts the English and Spanish spellings used by clients.
func ParseDomain(s string) (Domain, bool) {
	switch normalizeLabel(s) {
	case "financial", "finance", "financiera", "financiero", "finanzas":
		return DomainFinancial, true
	case "legal", "juridico", "juridica":
		return DomainLegal, true
	}
	return DomainUnset, false
}

func normalizeLabel(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case 'á', 'Á':
			r = 'a'
		case 'é', 'É':
			r = 'e'
		case 'í', 'Í':
			r = 'i'
		case 'ó', 'Ó':
			r = 'o'
		case 'ú', 'Ú':
			r = 'u'
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '.' || r == '"' || r == '\'' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)
