package domain

import (
	"slices"
	"time"
)

// Profile holds the user fields that are public to community members.
// Everything outside Profile stays private to the user.
type Profile struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Name        string `json:"name,omitempty"`
	Location    string `json:"location,omitempty"`
	Website     string `json:"website,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Bio         string `json:"bio,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	// WillingResponseTypes lists how this user is happy to be contacted
	// when one of their offers matches.
	WillingResponseTypes []ResponseType `json:"willing_response_types,omitempty"`
}

// NotificationPreferences controls which events generate email.
type NotificationPreferences struct {
	EmailOnReplies        bool `json:"email_on_replies"`
	EmailOnDirectMessages bool `json:"email_on_direct_messages"`
}

// User is a community member. The matching core reads users for community
// memberships and public profiles only; account management lives elsewhere.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	IsAdmin bool `json:"is_admin,omitempty"`

	Profile     Profile                 `json:"profile"`
	Preferences NotificationPreferences `json:"preferences"`

	// Communities the user is a member of. Used to default the
	// visibility scope of their non-public posts.
	Communities        []string `json:"communities,omitempty"`
	DefaultCommunityID string   `json:"default_community_id,omitempty"`

	LatestActivityAt time.Time `json:"latest_activity_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Touch updates UpdatedAt and LatestActivityAt.
func (u *User) Touch() {
	now := time.Now()
	u.UpdatedAt = now
	u.LatestActivityAt = now
}

// MemberOf reports whether the user belongs to the given community.
func (u *User) MemberOf(communityID string) bool {
	return slices.Contains(u.Communities, communityID)
}
