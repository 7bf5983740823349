package model

import "time"

type Role string

const (
	RoleStudent     Role = "student"
	RoleChairperson Role = "chairperson"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleChairperson, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	FullName          string
	Role              Role
	RollNumber        *string
	Branch            *string
	Year              *int32
	Phone             *string
	ProfilePictureURL *string
	ClubMemberships   []ClubMembership
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ClubMembership struct {
	ClubID   string
	Role     string
	JoinedAt time.Time
}

type ProfilePatch struct {
	FullName          *string
	RollNumber        *string
	Branch            *string
	Year              *int32
	Phone             *string
	ProfilePictureURL *string
}

type Club struct {
	ID          string
	Name        string
	Description *string
	LogoURL     *string
	BannerURL   *string
	WebsiteURL  *string
	Email       *string
	Phone       *string
	IsActive    bool
	MemberCount int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	ClubRoleMember      = "member"
	ClubRoleChairperson = "chairperson"
)

func ValidClubRole(role string) bool {
	return role == ClubRoleMember || role == ClubRoleChairperson
}

type EventType string

const (
	EventTypeSeminar     EventType = "seminar"
	EventTypeWorkshop    EventType = "workshop"
	EventTypeHackathon   EventType = "hackathon"
	EventTypeCompetition EventType = "competition"
	EventTypeFestival    EventType = "festival"
	EventTypeLecture     EventType = "lecture"
	EventTypeOther       EventType = "other"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeSeminar, EventTypeWorkshop, EventTypeHackathon, EventTypeCompetition,
		EventTypeFestival, EventTypeLecture, EventTypeOther:
		return true
	default:
		return false
	}
}

type Event struct {
	ID                string
	ClubID            string
	Title             string
	Description       *string
	EventType         EventType
	PosterURL         *string
	VenueAddress      *string
	IsOnline          bool
	OnlineLink        *string
	StartAt           time.Time
	EndAt             *time.Time
	RegistrationOpen  *time.Time
	RegistrationClose *time.Time
	MaxCapacity       *int32
	RegisteredCount   int32
	IsPublished       bool
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RegistrationOpenAt reports whether the registration window admits at.
func (e Event) RegistrationOpenAt(at time.Time) bool {
	if e.RegistrationOpen != nil && at.Before(*e.RegistrationOpen) {
		return false
	}
	if e.RegistrationClose != nil && at.After(*e.RegistrationClose) {
		return false
	}
	return true
}

type EventPatch struct {
	Title             *string
	Description       *string
	EventType         *EventType
	PosterURL         *string
	VenueAddress      *string
	IsOnline          *bool
	OnlineLink        *string
	StartAt           *time.Time
	EndAt             *time.Time
	RegistrationOpen  *time.Time
	RegistrationClose *time.Time
	MaxCapacity       *int32
	IsPublished       *bool
}

type EventSort string

const (
	EventSortUpcoming EventSort = "upcoming"
	EventSortLatest   EventSort = "latest"
	EventSortPopular  EventSort = "popular"
)

type EventFilter struct {
	Search string
	ClubID string
	Type   EventType
	Sort   EventSort
	After  time.Time
	Limit  int32
	Offset int32
}

type EventSummary struct {
	Event
	ClubName      string
	AttendedCount int32
}

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAttended   RegistrationStatus = "attended"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts as having shown up.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate
}

type Registration struct {
	ID           string
	EventID      string
	UserID       string
	Status       RegistrationStatus
	QRToken      string
	QRSealed     string
	QRData       string
	QRImage      string
	RegisteredAt time.Time
	CancelledAt  *time.Time
	Attendance   Attendance
	Feedback     *Feedback
	Certificate  *Certificate
}

type Attendance struct {
	IsMarked bool
	Status   AttendanceStatus
	MarkedAt *time.Time
	Logs     []AttendanceLog
}

type AttendanceLog struct {
	ID             string
	RegistrationID string
	EventID        string
	UserID         string
	MarkedBy       string
	MarkedAt       time.Time
	Status         AttendanceStatus
	Latitude       *float64
	Longitude      *float64
	Notes          *string
}

type Feedback struct {
	Rating      int32
	Comment     *string
	SubmittedAt time.Time
}

type Certificate struct {
	IsIssued bool
	URL      *string
	Number   *string
	IssuedAt *time.Time
}

// MarkAttendance describes one attendance write. Override lets a manual entry
// replace an existing mark; scans leave it false so the latch holds.
type MarkAttendance struct {
	RegistrationID     string
	EventID            string
	Status             AttendanceStatus
	RegistrationStatus RegistrationStatus
	Override           bool
	Log                AttendanceLog
}

type Attendee struct {
	Registration
	FullName   string
	Email      string
	RollNumber *string
	Branch     *string
}

type AttendanceCounts struct {
	Total         int64
	Present       int64
	Absent        int64
	Late          int64
	Excused       int64
	Pending       int64
	FeedbackCount int64
	AverageRating *float64
}

type AuditLog struct {
	ID         string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	CreatedAt  time.Time
}
