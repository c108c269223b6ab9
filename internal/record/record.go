package record

// Kind discriminates the record variants.
type Kind string

const (
	KindCalendarEvent Kind = "calendar_event"
	KindEmailHeader   Kind = "email_header"
)

const (
	SourceGoogleCalendar = "google_calendar"
	SourceGmail          = "gmail"
)

// Record is implemented by every normalized record variant.
type Record interface {
	Kind() Kind
	SourceArchive() string
}

// CalendarEvent is a normalized VEVENT.
type CalendarEvent struct {
	Type       Kind    `json:"type"`
	Timestamp  string  `json:"timestamp"`
	Title      *string `json:"title"`
	Source     string  `json:"source"`
	SourceFile string  `json:"source_file"`
}

// NewCalendarEvent builds a calendar record with the constant discriminant and source.
func NewCalendarEvent(timestamp string, title *string, sourceFile string) CalendarEvent {
	return CalendarEvent{
		Type:       KindCalendarEvent,
		Timestamp:  timestamp,
		Title:      title,
		Source:     SourceGoogleCalendar,
		SourceFile: sourceFile,
	}
}

func (e CalendarEvent) Kind() Kind { return KindCalendarEvent }

func (e CalendarEvent) SourceArchive() string { return e.SourceFile }

// EmailHeader is the raw header view of one mailbox message. Header values are
// kept verbatim; a nil pointer means the header was absent.
type EmailHeader struct {
	Type       Kind    `json:"type"`
	Timestamp  *string `json:"timestamp"`
	From       *string `json:"from"`
	To         *string `json:"to"`
	Subject    *string `json:"subject"`
	Source     string  `json:"source"`
	SourceFile string  `json:"source_file"`
}

// NewEmailHeader builds an email record with the constant discriminant and source.
func NewEmailHeader(date, from, to, subject *string, sourceFile string) EmailHeader {
	return EmailHeader{
		Type:       KindEmailHeader,
		Timestamp:  date,
		From:       from,
		To:         to,
		Subject:    subject,
		Source:     SourceGmail,
		SourceFile: sourceFile,
	}
}

func (e EmailHeader) Kind() Kind { return KindEmailHeader }

func (e EmailHeader) SourceArchive() string { return e.SourceFile }

// StringPtr returns a pointer to a copy of value.
func StringPtr(value string) *string {
	return &value
}

// StringValue dereferences ptr, returning "" for nil.
func StringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
