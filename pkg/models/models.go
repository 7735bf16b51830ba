package models

// Domain models matching the database schema in db/migrations/0001_init.sql

// Roles a user account can hold.
const (
	RoleAdministrator = "administrator"
	RoleJuryMember    = "jury_member"
)

// Capabilities checked by the HTTP layer.
const (
	CapManageAwards      = "mt_manage_awards"
	CapSubmitEvaluations = "mt_submit_evaluations"
)

// Taxonomy names.
const (
	TaxonomyCategory  = "mt_category"
	TaxonomyPhase     = "mt_phase"
	TaxonomyStatus    = "mt_status"
	TaxonomyAwardYear = "mt_award_year"
)

type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	DisplayName  string `json:"display_name" db:"display_name"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	Created      int64  `json:"created" db:"created"`
	Updated      int64  `json:"updated" db:"updated"`
}

// Can reports whether the user's role grants capability.
func (u *User) Can(capability string) bool {
	return RoleCan(u.Role, capability)
}

// RoleCan reports whether role grants capability.
func RoleCan(role, capability string) bool {
	switch role {
	case RoleAdministrator:
		return true
	case RoleJuryMember:
		return capability == CapSubmitEvaluations
	}
	return false
}

type Term struct {
	ID        int64  `json:"id" db:"id"`
	Taxonomy  string `json:"taxonomy" db:"taxonomy"`
	Slug      string `json:"slug" db:"slug"`
	Name      string `json:"name" db:"name"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// Sections holds the candidate description split by evaluation criterion.
type Sections struct {
	Overview       string `json:"overview,omitempty"`
	Courage        string `json:"courage,omitempty"`
	Innovation     string `json:"innovation,omitempty"`
	Implementation string `json:"implementation,omitempty"`
	Relevance      string `json:"relevance,omitempty"`
	Visibility     string `json:"visibility,omitempty"`
}

type Candidate struct {
	ID           int64    `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"`
	Slug         string   `json:"slug" db:"slug"`
	Organization string   `json:"organization" db:"organization"`
	Position     string   `json:"position" db:"position"`
	Country      string   `json:"country" db:"country"`
	WebsiteURL   string   `json:"website_url" db:"website_url"`
	LinkedInURL  string   `json:"linkedin_url" db:"linkedin_url"`
	Description  string   `json:"description" db:"description"`
	Sections     Sections `json:"sections"`
	Category     string   `json:"category" db:"category"`
	Phase        string   `json:"phase" db:"phase"`
	Status       string   `json:"status" db:"status"`
	AwardYear    int      `json:"award_year" db:"award_year"`
	PhotoKey     string   `json:"photo_key,omitempty" db:"photo_key"`
	Created      int64    `json:"created" db:"created"`
	Updated      int64    `json:"updated" db:"updated"`
	DeletedAt    *int64   `json:"deleted_at,omitempty" db:"deleted_at"`
}

type CandidateFilter struct {
	Category       string
	Phase          string
	Status         string
	AwardYear      int
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type JuryMember struct {
	ID           int64  `json:"id" db:"id"`
	UserID       *int64 `json:"user_id,omitempty" db:"user_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Organization string `json:"organization" db:"organization"`
	Position     string `json:"position" db:"position"`
	Expertise    string `json:"expertise" db:"expertise"`
	Biography    string `json:"biography" db:"biography"`
	Created      int64  `json:"created" db:"created"`
	Updated      int64  `json:"updated" db:"updated"`
}

type Assignment struct {
	ID           int64 `json:"id" db:"id"`
	JuryMemberID int64 `json:"jury_member_id" db:"jury_member_id"`
	CandidateID  int64 `json:"candidate_id" db:"candidate_id"`
	AssignedBy   int64 `json:"assigned_by" db:"assigned_by"`
	AssignedAt   int64 `json:"assigned_at" db:"assigned_at"`
}

type AssignmentFilter struct {
	JuryMemberID int64
	CandidateID  int64
	Limit        int
	Offset       int
}

// Evaluation statuses.
const (
	EvaluationDraft     = "draft"
	EvaluationCompleted = "completed"
)

// Scores holds the five criterion scores. Nil means not yet scored (drafts only).
type Scores struct {
	Courage        *int `json:"courage"`
	Innovation     *int `json:"innovation"`
	Implementation *int `json:"implementation"`
	Relevance      *int `json:"relevance"`
	Visibility     *int `json:"visibility"`
}

// Valid score range of every criterion.
const (
	MinScore = 0
	MaxScore = 10
)

// ClampScore limits v to [MinScore, MaxScore].
func ClampScore(v int) int {
	return min(max(v, MinScore), MaxScore)
}

// Clamp limits every present score to the valid range. Rows written before
// the range was enforced, or restored from older backups, are read through it.
func (s *Scores) Clamp() {
	for _, f := range []*int{s.Courage, s.Innovation, s.Implementation, s.Relevance, s.Visibility} {
		if f != nil {
			*f = ClampScore(*f)
		}
	}
}

type Evaluation struct {
	ID           int64   `json:"id" db:"id"`
	JuryMemberID int64   `json:"jury_member_id" db:"jury_member_id"`
	CandidateID  int64   `json:"candidate_id" db:"candidate_id"`
	Scores       Scores  `json:"scores"`
	TotalScore   float64 `json:"total_score" db:"total_score"`
	Comments     string  `json:"comments" db:"comments"`
	Status       string  `json:"status" db:"status"`
	Created      int64   `json:"created" db:"created"`
	Updated      int64   `json:"updated" db:"updated"`
}

type EvaluationFilter struct {
	JuryMemberID int64
	CandidateID  int64
	Status       string
	Limit        int
	Offset       int
}

type Vote struct {
	ID          int64  `json:"id" db:"id"`
	CandidateID int64  `json:"candidate_id" db:"candidate_id"`
	VoterEmail  string `json:"voter_email" db:"voter_email"`
	IPAddress   string `json:"ip_address" db:"ip_address"`
	UserAgent   string `json:"user_agent" db:"user_agent"`
	Created     int64  `json:"created" db:"created"`
}

// VoteCount is a tally row.
type VoteCount struct {
	CandidateID int64  `json:"candidate_id"`
	Name        string `json:"name"`
	Votes       int64  `json:"votes"`
}

// Ranking is a candidate ordered by its mean completed-evaluation score.
type Ranking struct {
	Rank            int     `json:"rank"`
	CandidateID     int64   `json:"candidate_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	AverageScore    float64 `json:"average_score"`
	EvaluationCount int64   `json:"evaluation_count"`
	VoteCount       int64   `json:"vote_count"`
}

type AuditLog struct {
	ID         int64  `json:"id" db:"id"`
	UserID     int64  `json:"user_id" db:"user_id"`
	Action     string `json:"action" db:"action"`
	ObjectType string `json:"object_type" db:"object_type"`
	ObjectID   int64  `json:"object_id" db:"object_id"`
	Details    string `json:"details" db:"details"`
	Created    int64  `json:"created" db:"created"`
}

type ErrorLog struct {
	ID      int64  `json:"id" db:"id"`
	Level   string `json:"level" db:"level"`
	Message string `json:"message" db:"message"`
	Context string `json:"context" db:"context"`
	Created int64  `json:"created" db:"created"`
}

// OrphanedEvaluation is an evaluation whose candidate, jury member or assignment is gone.
type OrphanedEvaluation struct {
	EvaluationID int64  `json:"evaluation_id"`
	JuryMemberID int64  `json:"jury_member_id"`
	CandidateID  int64  `json:"candidate_id"`
	Reason       string `json:"reason"`
}

// DuplicatePair is a (jury, candidate) pair holding more than one evaluation row.
type DuplicatePair struct {
	JuryMemberID int64 `json:"jury_member_id"`
	CandidateID  int64 `json:"candidate_id"`
	Count        int64 `json:"count"`
}
